package index

import (
	"path/filepath"
	"testing"

	"github.com/kshedden/raptor/internal/hibf"
	"github.com/kshedden/raptor/internal/ibf"
	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/shape"
)

func TestMarshalUnmarshalFlatRoundtrip(t *testing.T) {
	f, err := ibf.New(16, 4096, 2)
	if err != nil {
		t.Fatal(err)
	}
	f.Emplace(123, 5)

	sh, _ := shape.Ungapped(20)
	idx := &Index{
		WindowSize: 24,
		Shape:      sh,
		Parts:      1,
		BinPath:    [][]string{{"a.fasta"}, {"b.fasta"}},
		FPR:        0.05,
		HashCount:  2,
		IsHIBF:     false,
		Flat:       f,
	}

	data, err := idx.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.WindowSize != 24 || got.FPR != 0.05 || got.HashCount != 2 {
		t.Errorf("metadata mismatch: %+v", got)
	}
	agent := ibf.NewAgent(got.Flat)
	if counts := agent.BulkCount([]uint64{123}); counts[5] != 1 {
		t.Errorf("roundtripped IBF lost its emplaced hash: bin 5 count = %d", counts[5])
	}
}

func TestUnmarshalRejectsTruncatedData(t *testing.T) {
	f, _ := ibf.New(4, 64, 1)
	idx := &Index{Shape: mustShape(t), Flat: f}
	data, err := idx.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	// Drop the first byte of a valid payload and confirm the
	// malformed result is rejected rather than silently accepted.
	if _, err := Unmarshal(data[1:]); err == nil {
		t.Error("expected an error unmarshaling truncated/corrupted data")
	}
}

func TestWriteReadFileRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "myindex")

	tr := hibf.New(3, 0.05)
	root, _ := ibf.New(8, 2048, 3)
	tr.AddIBF(root, hibf.Location{IBFIdx: -1})
	tr.SetUserBin(0, 0, 10)
	root.Emplace(999, 0)

	idx := &Index{
		WindowSize: 20,
		Shape:      mustShape(t),
		Parts:      1,
		FPR:        0.01,
		HashCount:  3,
		IsHIBF:     true,
		Hierarchical: tr,
	}

	if err := Write(path, idx, ioutil.CodecSnappy); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path, ioutil.CodecSnappy)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsHIBF || got.Hierarchical == nil {
		t.Fatal("expected a hierarchical index to round-trip")
	}
	if got.Hierarchical.UserBinID[0][0] != 10 {
		t.Errorf("user bin id lost across round-trip: %d", got.Hierarchical.UserBinID[0][0])
	}
}

func TestWriteReadPartitioned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parts")

	f, _ := ibf.New(4, 1024, 2)
	idx := &Index{Shape: mustShape(t), Parts: 3, Flat: f}

	if err := Write(path, idx, ioutil.CodecNone); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPartitioned(path, 3, ioutil.CodecNone)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d partitions, want 3", len(got))
	}
}

func TestWritePartsWritesDistinctContentPerPartition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parts")

	f0, _ := ibf.New(4, 1024, 2)
	f0.Emplace(11, 0)
	f1, _ := ibf.New(4, 1024, 2)
	f1.Emplace(22, 1)

	indexes := []*Index{
		{Shape: mustShape(t), Parts: 2, Flat: f0},
		{Shape: mustShape(t), Parts: 2, Flat: f1},
	}
	if err := WriteParts(path, indexes, ioutil.CodecNone); err != nil {
		t.Fatal(err)
	}

	got, err := ReadPartitioned(path, 2, ioutil.CodecNone)
	if err != nil {
		t.Fatal(err)
	}
	agent0 := ibf.NewAgent(got[0].Flat)
	if bins := agent0.MembershipFor([]uint64{11}, 1); len(bins) != 1 || bins[0] != 0 {
		t.Errorf("partition 0 should carry hash 11 in bin 0, got %v", bins)
	}
	agent1 := ibf.NewAgent(got[1].Flat)
	if bins := agent1.MembershipFor([]uint64{22}, 1); len(bins) != 1 || bins[0] != 1 {
		t.Errorf("partition 1 should carry hash 22 in bin 1, got %v", bins)
	}
}

func TestReadAnyVersionAcceptsCurrentVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idx")

	f, _ := ibf.New(4, 1024, 2)
	idx := &Index{Shape: mustShape(t), Parts: 1, Flat: f}
	if err := Write(path, idx, ioutil.CodecNone); err != nil {
		t.Fatal(err)
	}

	got, version, err := ReadAnyVersion(path, ioutil.CodecNone)
	if err != nil {
		t.Fatal(err)
	}
	if version != Version {
		t.Errorf("got version %d, want %d", version, Version)
	}
	if got.Flat == nil {
		t.Error("expected a decoded Flat filter")
	}
}

func mustShape(t *testing.T) shape.Shape {
	t.Helper()
	sh, err := shape.Ungapped(16)
	if err != nil {
		t.Fatal(err)
	}
	return sh
}
