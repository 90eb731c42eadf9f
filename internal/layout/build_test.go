package layout

import (
	"strings"
	"testing"

	"github.com/kshedden/raptor/internal/ibf"
)

func fixedLoader(sets map[string][]uint64) HashLoader {
	return func(filenames []string) ([]uint64, error) {
		var out []uint64
		for _, f := range filenames {
			out = append(out, sets[f]...)
		}
		return out, nil
	}
}

func TestBuildFlatLayout(t *testing.T) {
	input := "#top_level_max_bin_id:1\n" +
		"#FILES\n" +
		"a.fasta\t0\t1\n" +
		"b.fasta\t1\t1\n" +
		"c.fasta\t2\t1\n" +
		"d.fasta\t3\t1\n"

	header, records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	load := fixedLoader(map[string][]uint64{
		"a.fasta": {1, 2, 3},
		"b.fasta": {10, 20, 30, 40, 50},
		"c.fasta": {100},
		"d.fasta": {200, 201},
	})

	got, err := Build(header, records, load, 2, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Tree.IBFs) != 1 {
		t.Fatalf("got %d IBFs, want 1", len(got.Tree.IBFs))
	}
	if got.Tree.IBFs[0].BinCount() != 4 {
		t.Errorf("bin count = %d, want 4", got.Tree.IBFs[0].BinCount())
	}
	if len(got.BinPath) != 4 {
		t.Fatalf("got %d bin-path entries, want 4", len(got.BinPath))
	}
	if got.BinPath[1][0] != "b.fasta" {
		t.Errorf("bin 1's user bin id should map back to b.fasta, got %v", got.BinPath[1])
	}

	agent := ibf.NewAgent(got.Tree.IBFs[0])
	counts := agent.BulkCount([]uint64{10, 20, 30, 40, 50})
	if counts[1] != 5 {
		t.Errorf("bin 1 should count all 5 of b.fasta's hashes, got %d", counts[1])
	}
}

func TestBuildNestedLayoutCreatesMergedBin(t *testing.T) {
	input := "#top_level_max_bin_id:1\n" +
		"#FILES\n" +
		"a.fasta\t1\t1\n" +
		"b.fasta\t0;0\t1;1\n" +
		"c.fasta\t0;1\t1;1\n"

	header, records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	load := fixedLoader(map[string][]uint64{
		"a.fasta": {1, 2},
		"b.fasta": {10, 11, 12},
		"c.fasta": {20, 21},
	})

	got, err := Build(header, records, load, 2, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Tree.IBFs) != 2 {
		t.Fatalf("got %d IBFs, want 2 (root + one merged child)", len(got.Tree.IBFs))
	}
	if got.Tree.IsLeafBin(0, 0) {
		t.Error("bin 0 of root should be a merged bin pointing at the child IBF")
	}
	if !got.Tree.IsMergedBin(0, 0) {
		t.Error("bin 0 of root should report as merged")
	}
	if !got.Tree.IsLeafBin(0, 1) {
		t.Error("bin 1 of root should remain a leaf (a.fasta)")
	}

	// Root should have absorbed the child's merged hashes too.
	rootAgent := ibf.NewAgent(got.Tree.IBFs[0])
	counts := rootAgent.BulkCount([]uint64{10, 11, 12})
	if counts[0] != 3 {
		t.Errorf("root bin 0 should see all 3 of the merged child's hashes, got %d", counts[0])
	}
}

func TestBuildSplitsOversizedUserBinAcrossConsecutiveTechnicalBins(t *testing.T) {
	input := "#top_level_max_bin_id:0\n" +
		"#FILES\n" +
		"s.fasta\t0\t2\n"

	header, records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	load := fixedLoader(map[string][]uint64{
		"s.fasta": {1, 2, 3, 4, 5, 6},
	})

	got, err := Build(header, records, load, 2, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	if got.Tree.IBFs[0].BinCount() != 2 {
		t.Fatalf("bin count = %d, want 2 (the split user bin spans 2 technical bins)", got.Tree.IBFs[0].BinCount())
	}
	if len(got.BinPath) != 1 {
		t.Fatalf("got %d bin-path entries, want 1 (one user bin split across bins)", len(got.BinPath))
	}

	agent := ibf.NewAgent(got.Tree.IBFs[0])
	counts := agent.BulkCount([]uint64{1, 2, 3, 4, 5, 6})
	if counts[0]+counts[1] != 6 {
		t.Errorf("split bins together should see all 6 hashes, got bin0=%d bin1=%d", counts[0], counts[1])
	}
	if counts[0] == 0 || counts[1] == 0 {
		t.Errorf("expected the hash set divided across both split bins, got bin0=%d bin1=%d", counts[0], counts[1])
	}
}

func TestBuildRejectsMalformedRecord(t *testing.T) {
	_, err := Build(Header{TopLevelMaxBin: 0, MergedMaxBin: map[string]int{}},
		[]Record{{Filenames: []string{"x"}, BinIndices: nil, NumberOfBins: nil}},
		fixedLoader(nil), 2, 0.05)
	if err == nil {
		t.Error("expected an error for a record with an empty bin-index stack")
	}
}
