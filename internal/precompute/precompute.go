// Package precompute implements the minimiser precompute pipeline
// (C4): for each user bin's source files, count every minimiser's
// occurrences, drop the ones below a cutoff, and write a `.minimiser`
// binary (the same raw little-endian u64 array
// internal/reader.MinimiserFileReader replays) plus a `.header`
// sidecar recording the parameters used. Resumability follows
// muscato's tmp-then-promote idiom via internal/ioutil's
// `.in_progress` sentinel: a crash mid-run leaves the sentinel behind,
// so a restarted run knows to redo the work instead of trusting a
// half-written `.minimiser` file.
package precompute

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/reader"
	"github.com/kshedden/raptor/internal/shape"
)

// Options configures one Pipeline's behaviour across all the user
// bins it processes.
type Options struct {
	Shape      shape.Shape
	WindowSize int

	Policy      CutoffPolicy
	FixedCutoff int
}

// Result reports what Run did for one user bin.
type Result struct {
	Cutoff    int
	KeptCount int
	Skipped   bool // true when a completed .minimiser already existed
}

// Run processes one user bin's files, writing "<outBasePath>.minimiser"
// and "<outBasePath>.header". If a completed .minimiser already exists
// (no leftover .in_progress sentinel beside it), Run does no work and
// returns Result{Skipped: true}.
func (opts Options) Run(files []string, outBasePath string) (Result, error) {
	minimiserPath := outBasePath + ".minimiser"
	headerPath := outBasePath + ".header"
	sentinel := ioutil.InProgressSentinelPath(outBasePath)

	if _, err := os.Stat(minimiserPath); err == nil {
		if _, serr := os.Stat(sentinel); os.IsNotExist(serr) {
			return Result{Skipped: true}, nil
		}
	}

	if err := ioutil.EnsureDir(filepath.Dir(outBasePath)); err != nil {
		return Result{}, fmt.Errorf("precompute: %w", err)
	}
	if err := os.WriteFile(sentinel, nil, 0o644); err != nil {
		return Result{}, fmt.Errorf("precompute: writing sentinel: %w", err)
	}

	cutoff, err := opts.cutoff(files)
	if err != nil {
		os.Remove(sentinel)
		return Result{}, fmt.Errorf("precompute: %w", err)
	}

	counts := make(map[uint64]int)
	sr := reader.NewSequenceReader(opts.Shape, opts.WindowSize)
	if err := sr.ForEachHash(files, func(h uint64) { counts[h]++ }); err != nil {
		os.Remove(sentinel)
		return Result{}, fmt.Errorf("precompute: counting minimisers: %w", err)
	}

	kept := make([]uint64, 0, len(counts))
	for h, c := range counts {
		if c >= cutoff {
			kept = append(kept, h)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

	if err := writeMinimiserFile(minimiserPath, kept); err != nil {
		os.Remove(sentinel)
		return Result{}, fmt.Errorf("precompute: %w", err)
	}
	if err := writeHeaderFile(headerPath, opts.Shape, opts.WindowSize, cutoff, len(kept)); err != nil {
		os.Remove(sentinel)
		return Result{}, fmt.Errorf("precompute: %w", err)
	}

	if err := os.Remove(sentinel); err != nil {
		return Result{}, fmt.Errorf("precompute: clearing sentinel: %w", err)
	}
	return Result{Cutoff: cutoff, KeptCount: len(kept)}, nil
}

func writeMinimiserFile(path string, hashes []uint64) error {
	w, err := ioutil.NewAtomicWriter(path, ioutil.CodecNone)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, 1<<20)
	var buf [8]byte
	for _, h := range hashes {
		binary.LittleEndian.PutUint64(buf[:], h)
		if _, err := bw.Write(buf[:]); err != nil {
			w.Abandon()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		w.Abandon()
		return err
	}
	return w.Close()
}

// writeHeaderFile writes the whitespace-separated
// "shape_string window_size cutoff kept_count" sidecar.
func writeHeaderFile(path string, sh shape.Shape, windowSize, cutoff, keptCount int) error {
	w, err := ioutil.NewAtomicWriter(path, ioutil.CodecNone)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s %d %d %d\n", sh.String(), windowSize, cutoff, keptCount)
	if _, err := w.Write([]byte(line)); err != nil {
		w.Abandon()
		return err
	}
	return w.Close()
}
