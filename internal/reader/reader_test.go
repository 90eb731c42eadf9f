package reader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/raptor/internal/shape"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSequenceReaderFasta(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "seqs.fasta", []byte(">r1\nACGTACGTACGTACGTACGT\n>r2\nTTTTGGGGCCCCAAAATTTT\n"))

	sh, _ := shape.Ungapped(8)
	sr := NewSequenceReader(sh, 10)

	var count int
	err := sr.HashInto([]string{path}, func(uint64) { count++ })
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Error("expected at least one distinct minimiser")
	}
}

func TestSequenceReaderFastq(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "reads.fastq", []byte("@r1\nACGTACGTACGTACGT\n+\nIIIIIIIIIIIIIIII\n@r2\nGGGGCCCCAAAATTTT\n+\nIIIIIIIIIIIIIIII\n"))

	sh, _ := shape.Ungapped(6)
	sr := NewSequenceReader(sh, 8)

	var hashes []uint64
	err := sr.ForEachHash([]string{path}, func(h uint64) { hashes = append(hashes, h) })
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) == 0 {
		t.Error("expected minimisers from fastq records")
	}
}

func TestMinimiserFileReaderRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "values.minimiser")

	var buf bytes.Buffer
	want := []uint64{1, 2, 3, 42, 42, 7}
	for _, v := range want {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	var mr MinimiserFileReader
	var got []uint64
	err := mr.ForEachHash([]string{path}, func(h uint64) { got = append(got, h) })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}

	var distinct int
	err = mr.HashInto([]string{path}, func(uint64) { distinct++ })
	if err != nil {
		t.Fatal(err)
	}
	if distinct != 5 {
		t.Errorf("distinct = %d, want 5 (42 repeats)", distinct)
	}
}

func TestForEachRecordPreservesNamesAndOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "seqs.fasta", []byte(">r1\nACGTACGT\n>r2\nTTTTGGGG\n>r3\nCCCCAAAA\n"))

	var names []string
	var seqs []string
	err := ForEachRecord([]string{path}, func(name string, seq []byte) error {
		names = append(names, name)
		seqs = append(seqs, string(seq))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	wantNames := []string{"r1", "r2", "r3"}
	wantSeqs := []string{"ACGTACGT", "TTTTGGGG", "CCCCAAAA"}
	if len(names) != len(wantNames) {
		t.Fatalf("got %d records, want %d", len(names), len(wantNames))
	}
	for i := range wantNames {
		if names[i] != wantNames[i] || seqs[i] != wantSeqs[i] {
			t.Errorf("record %d = (%q, %q), want (%q, %q)", i, names[i], seqs[i], wantNames[i], wantSeqs[i])
		}
	}
}

func TestForEachRecordPropagatesCallbackError(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "seqs.fasta", []byte(">r1\nACGTACGT\n>r2\nTTTTGGGG\n"))

	wantErr := fmt.Errorf("stop here")
	var seen int
	err := ForEachRecord([]string{path}, func(name string, seq []byte) error {
		seen++
		return wantErr
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if seen != 1 {
		t.Errorf("callback invoked %d times, want 1 (should stop at the first error)", seen)
	}
}

func TestHashIntoIfFiltersByPredicate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "values.minimiser")
	var buf bytes.Buffer
	for _, v := range []uint64{0, 1, 2, 3, 4, 5} {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	os.WriteFile(path, buf.Bytes(), 0o644)

	var mr MinimiserFileReader
	var got []uint64
	err := mr.HashIntoIf([]string{path}, func(h uint64) { got = append(got, h) }, func(h uint64) bool { return h%2 == 0 })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %v, want 3 even values", got)
	}
}
