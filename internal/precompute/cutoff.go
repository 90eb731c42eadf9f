package precompute

import (
	"os"
	"strings"
)

// CutoffPolicy selects how Pipeline derives the minimum occurrence
// count a minimiser must reach to be kept.
type CutoffPolicy int

const (
	// CutoffFixed applies the same cutoff to every file.
	CutoffFixed CutoffPolicy = iota
	// CutoffFileSize derives the cutoff from each file's (adjusted)
	// size, the Mantis-derived heuristic cutoff.hpp implements.
	CutoffFileSize
)

// fileSizeCutoffs/fileSizeBounds mirror cutoff.hpp's cutoffs/cutoff_bounds
// tables verbatim: small files need only discard singletons, large
// files need a much higher bar before a minimiser counts as signal
// rather than sequencing noise.
var fileSizeCutoffs = [4]int{1, 3, 10, 20}
var fileSizeBounds = [4]int64{
	314_572_800,   // 300 MiB
	524_288_000,   // 500 MiB
	1_073_741_824, // 1 GiB
	3_221_225_472, // 3 GiB
}

// defaultFileSizeCutoff is used above every bound (50, per cutoff.hpp).
const defaultFileSizeCutoff = 50

// fastaExtensions lists the extensions check_for_fasta_format
// recognises, compared case-insensitively.
var fastaExtensions = []string{".fasta", ".fa", ".fna", ".ffn", ".faa", ".frn"}

func isCompressed(path string) bool {
	ext := strings.ToLower(extension(path))
	return ext == ".gz" || ext == ".bgzf" || ext == ".bz2"
}

func isFASTA(path string) bool {
	ext := strings.ToLower(extension(path))
	if isCompressed(path) {
		// The compressed extension hides the format extension beneath
		// it (e.g. "reads.fasta.gz"); check the next one in, the way
		// cutoff.hpp substitutes path.stem() for path.extension().
		ext = strings.ToLower(extension(strings.TrimSuffix(path, extension(path))))
	}
	for _, want := range fastaExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func extension(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

// fileSizeCutoff computes the size-dependent cutoff for path, using
// its actual on-disk size adjusted for format (×2 FASTA) and
// compression (÷3 if not compressed), exactly as cutoff.hpp's impl.
func fileSizeCutoff(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if isFASTA(path) {
		size *= 2
	}
	if !isCompressed(path) {
		size /= 3
	}

	for i, bound := range fileSizeBounds {
		if size <= bound {
			return fileSizeCutoffs[i], nil
		}
	}
	return defaultFileSizeCutoff, nil
}

// cutoff derives the occurrence-count cutoff for a user bin's files.
// With CutoffFileSize, a multi-file user bin uses the maximum of its
// files' individual cutoffs (the bin's kept set should be at least as
// conservative as its largest/noisiest input).
func (opts Options) cutoff(files []string) (int, error) {
	if opts.Policy == CutoffFixed {
		return opts.FixedCutoff, nil
	}
	best := 0
	for _, f := range files {
		c, err := fileSizeCutoff(f)
		if err != nil {
			return 0, err
		}
		if c > best {
			best = c
		}
	}
	return best, nil
}
