// Command raptor builds and queries approximate membership filters
// over large DNA sequence collections: minimiser-sketched Interleaved
// and Hierarchical Interleaved Bloom Filters, with a probabilistic
// threshold model for bounded-error substring search.
//
// Usage mirrors muscato's single entry point generalised to
// subcommands, since Raptor has several independent stages instead of
// one linear pipeline:
//
//	raptor build   --kmer 20 --window 24 --fpr 0.01 --hash 4 --input bins.txt --output index.bin
//	raptor layout  --kmer 20 --window 24 --fpr 0.01 --hash 4 --input layout.txt --output index.bin
//	raptor search  --index index.bin --query reads.fastq --error 2 --output results.txt
//	raptor prepare --kmer 20 --window 24 --cutoff-policy fixed --cutoff 3 --input bins.txt --output precomputed/
//	raptor update insert --index index.bin --insert-id 7 --insert-files a.fasta,b.fasta
//	raptor update delete --index index.bin --delete-ids 3,5,9
//	raptor upgrade --index old_index.bin --output index.bin
//
// Every verb accepts --config PATH to read its parameters from a TOML
// file (see internal/config); flags given on the command line
// override the file's values, the same precedence muscato's
// --ConfigFileName/flag combination uses.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/kshedden/raptor/internal/shape"
)

var logger *log.Logger

// fail writes a [Error]-prefixed diagnostic to stderr and exits
// non-zero, mirroring spec §7's error-handling policy and muscato's
// os.Stderr.WriteString/os.Exit(1) idiom throughout its cmd/ scripts.
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[Error] "+format+"\n", args...)
	os.Exit(1)
}

// setupLog opens "<dir>/<name>", creating dir if needed, the same
// setupLogger pattern muscato_screen.go/muscato_confirm.go use per
// subprocess.
func setupLog(dir, name string) (*log.Logger, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	fid, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	return log.New(fid, "", log.Ltime), nil
}

// runID generates a fresh run identifier the way muscato's makeTemp
// does for its temp/log directory names.
func runID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// timingDir resolves the directory a verb's log file is written
// under: the user-specified --timing-output, or a generated
// raptor_logs/<run-id> default. A pprof profile, when one is taken,
// goes to the RAPTOR_PROFILE directory instead (see main).
func timingDir(timingOutput string) (string, error) {
	if timingOutput != "" {
		return timingOutput, nil
	}
	id, err := runID()
	if err != nil {
		return "", err
	}
	return filepath.Join("raptor_logs", id), nil
}

// resolveShape builds a shape.Shape from the --kmer/--shape flag pair
// exactly as spec §7's invariant table requires: the two are mutually
// exclusive, and at least one must be given.
func resolveShape(kmerSize int, bitmask string) (shape.Shape, error) {
	if kmerSize != 0 && bitmask != "" {
		return shape.Shape{}, fmt.Errorf("--kmer and --shape are mutually exclusive")
	}
	if bitmask != "" {
		mask, err := parseBitmask(bitmask)
		if err != nil {
			return shape.Shape{}, err
		}
		return shape.New(mask)
	}
	if kmerSize != 0 {
		return shape.Ungapped(uint8(kmerSize))
	}
	return shape.Shape{}, fmt.Errorf("one of --kmer or --shape is required")
}

func parseBitmask(s string) (uint64, error) {
	var mask uint64
	for _, c := range s {
		mask <<= 1
		switch c {
		case '1':
			mask |= 1
		case '0':
			// no-op
		default:
			return 0, fmt.Errorf("--shape must be a binary string, got %q", s)
		}
	}
	if mask == 0 {
		return 0, fmt.Errorf("--shape must contain at least one '1'")
	}
	return mask, nil
}

// resolveThreads returns threads if positive, else runtime.GOMAXPROCS(0).
func resolveThreads(threads int) int {
	if threads > 0 {
		return threads
	}
	return runtime.GOMAXPROCS(0)
}
