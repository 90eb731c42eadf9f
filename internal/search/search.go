// Package search implements the query driver (C12): for every input
// query, compute its minimiser set, ask the index which user bins
// meet the query's threshold, and emit one result line per query.
//
// Processing follows search_singular_ibf.hpp: queries are consumed in
// fixed-size chunks, each chunk is shuffled with a fixed seed before
// dispatch (so hot bins don't all land on one worker), then processed
// by a bounded pool of worker goroutines. The bounded-pool shape is
// muscato_screen.go's search()/harvest() semaphore-channel idiom
// (limit <- struct{}{} before each worker, drained at the end);
// output itself is guarded by a single mutex rather than a channel,
// matching sync_out's literal std::mutex-guarded std::ofstream.
package search

import (
	"bufio"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/kshedden/raptor/internal/threshold"
)

// Index is anything that can answer a membership query: both
// internal/hibf.Tree and FlatIndex (wrapping a single
// internal/ibf.IBF) satisfy it.
type Index interface {
	Query(hashes []uint64, threshold uint16) []int64
}

// Query is one search input: a name for the result line, and the
// minimiser hashes already extracted from its sequence (by
// internal/reader + internal/minimiser upstream of this package).
type Query struct {
	Name   string
	Hashes []uint64
}

// shuffleSeed matches search_singular_ibf.hpp's std::mt19937_64{0u}:
// every chunk is shuffled from the same fixed seed, not a running
// generator, so each chunk's processing order is independently
// reproducible.
const shuffleSeed = 0

// defaultChunkSize mirrors the C++ driver's (1ULL << 20) * 10.
const defaultChunkSize = (1 << 20) * 10

// Driver runs queries against an Index using a threshold.Threshold to
// decide, per query, how many matching minimisers constitute a hit.
type Driver struct {
	Index       Index
	Threshold   *threshold.Threshold
	Concurrency int
	ChunkSize   int
}

// NewDriver returns a Driver with sane defaults for concurrency and
// chunk size when the caller passes <= 0.
func NewDriver(idx Index, th *threshold.Threshold, concurrency int) *Driver {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Driver{Index: idx, Threshold: th, Concurrency: concurrency, ChunkSize: defaultChunkSize}
}

// syncWriter is the Go equivalent of sync_out's mutex-guarded
// std::ofstream: every Write is serialised behind one lock, so
// concurrent workers never interleave partial lines.
type syncWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (s *syncWriter) writeString(str string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.WriteString(str)
	return err
}

// Run writes the manifest header (see writeHeader), then evaluates
// every query in fixed-size shuffled chunks and writes one TSV line
// per query: "<name>\t<user_bin_id>,<user_bin_id>,...\n" (an empty
// second column when nothing matched). Within a chunk, output order
// follows the post-shuffle processing order, not input order; each
// query's own result line is always sorted ascending.
func (d *Driver) Run(queries []Query, manifest ManifestParams, out io.Writer) error {
	sw := &syncWriter{w: bufio.NewWriterSize(out, 1<<20)}
	if err := writeHeader(sw, manifest); err != nil {
		return err
	}

	chunkSize := d.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	for start := 0; start < len(queries); start += chunkSize {
		end := start + chunkSize
		if end > len(queries) {
			end = len(queries)
		}
		chunk := make([]Query, end-start)
		copy(chunk, queries[start:end])

		rng := rand.New(rand.NewSource(shuffleSeed))
		rng.Shuffle(len(chunk), func(i, j int) { chunk[i], chunk[j] = chunk[j], chunk[i] })

		if err := d.runChunk(chunk, sw); err != nil {
			return err
		}
	}

	return sw.w.Flush()
}

func (d *Driver) runChunk(chunk []Query, sw *syncWriter) error {
	limit := make(chan struct{}, d.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, q := range chunk {
		limit <- struct{}{}
		wg.Add(1)
		go func(q Query) {
			defer wg.Done()
			defer func() { <-limit }()

			tau := uint16(d.Threshold.Get(len(q.Hashes)))
			userBins := d.Index.Query(q.Hashes, tau)
			if err := sw.writeString(formatLine(q.Name, userBins)); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(q)
	}
	wg.Wait()
	return firstErr
}

func formatLine(name string, userBins []int64) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('\t')
	for i, id := range userBins {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte('\n')
	return b.String()
}
