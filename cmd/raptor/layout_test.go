package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/raptor/internal/index"
	"github.com/kshedden/raptor/internal/ioutil"
)

func writeLayoutFixture(t *testing.T, dir string) (layoutPath string, fastaPaths map[string]string) {
	t.Helper()

	fastaPaths = map[string]string{
		"a.fasta": ">r1\nACGTACGTACGTACGTACGTACGT\n",
		"b.fasta": ">r2\nTTTTACGTACGTACGTACGTACGT\n",
	}
	for name, content := range fastaPaths {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		fastaPaths[name] = p
	}

	layoutPath = filepath.Join(dir, "layout.txt")
	body := "#top_level_max_bin_id:0\n" +
		"#FILES\n" +
		fastaPaths["a.fasta"] + "\t0\t1\n" +
		fastaPaths["b.fasta"] + "\t1\t1\n"
	if err := os.WriteFile(layoutPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return layoutPath, fastaPaths
}

func TestRunLayoutBuildsAndWritesHierarchicalIndex(t *testing.T) {
	dir := t.TempDir()
	layoutPath, _ := writeLayoutFixture(t, dir)
	outPath := filepath.Join(dir, "index.bin")

	err := runLayout([]string{
		"--input", layoutPath,
		"--output", outPath,
		"--kmer", "8",
		"--window", "10",
		"--fpr", "0.05",
		"--hash", "2",
		"--timing-output", filepath.Join(dir, "logs"),
	})
	if err != nil {
		t.Fatal(err)
	}

	idx, err := index.Read(outPath, ioutil.CodecSnappy)
	if err != nil {
		t.Fatal(err)
	}
	if !idx.IsHIBF || idx.Hierarchical == nil {
		t.Fatalf("expected a hierarchical index, got %+v", idx)
	}
	if len(idx.BinPath) != 2 {
		t.Errorf("expected 2 user bins recorded in BinPath, got %d", len(idx.BinPath))
	}
}

func TestRunLayoutRequiresInputAndOutput(t *testing.T) {
	if err := runLayout([]string{"--kmer", "8", "--window", "10"}); err == nil {
		t.Error("expected an error when --input/--output are missing")
	}
}
