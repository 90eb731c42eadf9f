package precompute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/shape"
)

func mustShape(t *testing.T, k uint8) shape.Shape {
	t.Helper()
	sh, err := shape.Ungapped(k)
	if err != nil {
		t.Fatal(err)
	}
	return sh
}

func writeFASTA(t *testing.T, dir, name string, records map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var data []byte
	for n, seq := range records {
		data = append(data, '>')
		data = append(data, n...)
		data = append(data, '\n')
		data = append(data, seq...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWritesMinimiserAndHeaderFiles(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFASTA(t, dir, "bin1.fasta", map[string]string{
		"seq1": "ACGTACGTACGTACGTACGTACGT",
	})

	opts := Options{
		Shape:       mustShape(t, 4),
		WindowSize:  4,
		Policy:      CutoffFixed,
		FixedCutoff: 1,
	}
	base := filepath.Join(dir, "out", "bin1")
	result, err := opts.Run([]string{fasta}, base)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped {
		t.Fatal("Run reported Skipped on a fresh output path")
	}
	if result.Cutoff != 1 {
		t.Errorf("Cutoff = %d, want 1", result.Cutoff)
	}
	if result.KeptCount == 0 {
		t.Error("KeptCount = 0, want at least one kept minimiser")
	}

	if _, err := os.Stat(base + ".minimiser"); err != nil {
		t.Errorf(".minimiser not written: %v", err)
	}
	hdr, err := ReadHeaderFile(base + ".header")
	if err != nil {
		t.Fatalf("ReadHeaderFile: %v", err)
	}
	if hdr.WindowSize != opts.WindowSize {
		t.Errorf("header WindowSize = %d, want %d", hdr.WindowSize, opts.WindowSize)
	}
	if hdr.Cutoff != 1 {
		t.Errorf("header Cutoff = %d, want 1", hdr.Cutoff)
	}
	if hdr.KeptCount != result.KeptCount {
		t.Errorf("header KeptCount = %d, want %d", hdr.KeptCount, result.KeptCount)
	}
	if hdr.Shape.Mask != opts.Shape.Mask || hdr.Shape.Size != opts.Shape.Size {
		t.Errorf("header Shape = %+v, want %+v", hdr.Shape, opts.Shape)
	}

	if _, err := os.Stat(ioutil.InProgressSentinelPath(base)); !os.IsNotExist(err) {
		t.Errorf("sentinel left behind after a successful Run: %v", err)
	}
}

func TestRunAppliesCutoffFiltering(t *testing.T) {
	dir := t.TempDir()
	// AAAA opens and closes the sequence, with four other 4-mers
	// between its two occurrences, so it is emitted as a minimiser
	// twice (the producer suppresses only adjacent repeats); every
	// other 4-mer is emitted once. With a cutoff of 2, only AAAA
	// survives.
	fasta := writeFASTA(t, dir, "bin1.fasta", map[string]string{
		"seq1": "AAAATAAAA",
	})

	opts := Options{
		Shape:       mustShape(t, 4),
		WindowSize:  4,
		Policy:      CutoffFixed,
		FixedCutoff: 2,
	}
	base := filepath.Join(dir, "bin1")
	result, err := opts.Run([]string{fasta}, base)
	if err != nil {
		t.Fatal(err)
	}
	if result.KeptCount != 1 {
		t.Fatalf("KeptCount = %d, want 1 (only AAAA clears the cutoff of 2)", result.KeptCount)
	}
}

func TestRunSkipsAlreadyCompletedOutput(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFASTA(t, dir, "bin1.fasta", map[string]string{
		"seq1": "ACGTACGTACGTACGT",
	})
	opts := Options{
		Shape:       mustShape(t, 4),
		WindowSize:  4,
		Policy:      CutoffFixed,
		FixedCutoff: 1,
	}
	base := filepath.Join(dir, "bin1")

	if _, err := opts.Run([]string{fasta}, base); err != nil {
		t.Fatal(err)
	}

	result, err := opts.Run([]string{fasta}, base)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Skipped {
		t.Error("second Run over a completed output should have been skipped")
	}
}

func TestRunRedoesWorkWhenSentinelIsLeftBehind(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFASTA(t, dir, "bin1.fasta", map[string]string{
		"seq1": "ACGTACGTACGTACGT",
	})
	opts := Options{
		Shape:       mustShape(t, 4),
		WindowSize:  4,
		Policy:      CutoffFixed,
		FixedCutoff: 1,
	}
	base := filepath.Join(dir, "bin1")

	if _, err := opts.Run([]string{fasta}, base); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-run: a leftover sentinel beside a completed
	// .minimiser means the previous attempt never finished.
	if err := os.WriteFile(ioutil.InProgressSentinelPath(base), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := opts.Run([]string{fasta}, base)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped {
		t.Error("Run should have redone the work, not skipped it, with a leftover sentinel present")
	}
	if _, err := os.Stat(ioutil.InProgressSentinelPath(base)); !os.IsNotExist(err) {
		t.Errorf("sentinel left behind after redoing the work: %v", err)
	}
}

func TestReadHeaderFileRejectsMalformedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.header")
	if err := os.WriteFile(path, []byte("1111 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadHeaderFile(path); err == nil {
		t.Error("ReadHeaderFile should reject a file with too few fields")
	}
}
