package layout

import (
	"strings"
	"testing"
)

func TestParseLineSimpleLeaf(t *testing.T) {
	rec, err := ParseLine("a.fasta;b.fasta\t3\t8")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Filenames) != 2 || rec.Filenames[0] != "a.fasta" || rec.Filenames[1] != "b.fasta" {
		t.Errorf("filenames = %v", rec.Filenames)
	}
	if len(rec.BinIndices) != 1 || rec.BinIndices[0] != 3 {
		t.Errorf("bin indices = %v", rec.BinIndices)
	}
	if len(rec.NumberOfBins) != 1 || rec.NumberOfBins[0] != 8 {
		t.Errorf("number of bins = %v", rec.NumberOfBins)
	}
}

func TestParseLineNestedStack(t *testing.T) {
	rec, err := ParseLine("x.fasta\t0;5\t64;16")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.BinIndices) != 2 || rec.BinIndices[0] != 0 || rec.BinIndices[1] != 5 {
		t.Errorf("bin indices = %v", rec.BinIndices)
	}
	if len(rec.NumberOfBins) != 2 || rec.NumberOfBins[0] != 64 || rec.NumberOfBins[1] != 16 {
		t.Errorf("number of bins = %v", rec.NumberOfBins)
	}
}

func TestParseLineRejectsMismatchedStacks(t *testing.T) {
	if _, err := ParseLine("a.fasta\t0;5\t64"); err == nil {
		t.Error("expected an error for mismatched stack lengths")
	}
}

func TestParseLineRejectsWrongFieldCount(t *testing.T) {
	if _, err := ParseLine("a.fasta\t0"); err == nil {
		t.Error("expected an error for a missing field")
	}
}

func TestParseFlatLayout(t *testing.T) {
	input := "#top_level_max_bin_id:2\n" +
		"#FILES\n" +
		"a.fasta\t0\t4\n" +
		"b.fasta\t1\t4\n" +
		"c.fasta\t2\t4\n" +
		"d.fasta\t3\t4\n"

	header, records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if header.TopLevelMaxBin != 2 {
		t.Errorf("top level max bin = %d, want 2", header.TopLevelMaxBin)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
}

func TestParseNestedLayoutWithMergedMaxBin(t *testing.T) {
	input := "#top_level_max_bin_id:0\n" +
		"#0;merged_max_bin_id:1\n" +
		"#FILES\n" +
		"a.fasta\t1\t4\n" +
		"b.fasta\t0;0\t4;4\n" +
		"c.fasta\t0;1\t4;4\n"

	header, records, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if header.TopLevelMaxBin != 0 {
		t.Errorf("top level max bin = %d, want 0", header.TopLevelMaxBin)
	}
	if header.MergedMaxBin["0"] != 1 {
		t.Errorf("merged max bin for node \"0\" = %d, want 1", header.MergedMaxBin["0"])
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
}

func TestParseRejectsMissingTopLevelDeclaration(t *testing.T) {
	input := "#FILES\na.fasta\t0\t4\n"
	if _, _, err := Parse(strings.NewReader(input)); err == nil {
		t.Error("expected an error when the top-level max_bin_id is missing")
	}
}
