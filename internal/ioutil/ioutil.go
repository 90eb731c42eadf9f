// Package ioutil collects the small set of file helpers shared by
// the precompute, index, and search stages: snappy/lz4 transparent
// wrapping and an atomic write-then-rename primitive so a crash never
// leaves a half-written artifact looking complete. Grounded on
// muscato.go's use of snappy.NewBufferedWriter/snappy.NewReader for
// on-disk compression and its tmp_directory "write under a
// distinguishing name, then promote" idiom.
package ioutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// Codec selects which compressor AtomicWriter/OpenCompressed use.
type Codec int

const (
	// CodecNone writes raw bytes, uncompressed.
	CodecNone Codec = iota
	// CodecSnappy wraps with snappy, the codec muscato uses for its
	// matches/window files.
	CodecSnappy
	// CodecLZ4 wraps with lz4, offered as an alternate archive codec
	// for internal/index (faster than snappy) per spec 4.10's
	// allowance for a configurable on-disk codec.
	CodecLZ4
)

// AtomicWriter writes to a temporary sibling file named
// "<path>.in_progress" and renames it into place on Close, so a
// reader never observes a partially written file -- the same
// sentinel-then-rename idiom internal/precompute uses for its
// `.minimiser` outputs.
type AtomicWriter struct {
	path    string
	tmpPath string
	file    *os.File
	wrapped io.WriteCloser
	bw      *bufio.Writer
}

// NewAtomicWriter opens path's temporary sibling for writing,
// wrapping it with the given codec.
func NewAtomicWriter(path string, codec Codec) (*AtomicWriter, error) {
	tmpPath := path + ".in_progress"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, err
	}

	aw := &AtomicWriter{path: path, tmpPath: tmpPath, file: f}
	switch codec {
	case CodecSnappy:
		aw.wrapped = snappy.NewBufferedWriter(f)
	case CodecLZ4:
		aw.wrapped = lz4.NewWriter(f)
	default:
		aw.bw = bufio.NewWriterSize(f, 1<<20)
	}
	return aw, nil
}

// Write implements io.Writer.
func (w *AtomicWriter) Write(p []byte) (int, error) {
	if w.bw != nil {
		return w.bw.Write(p)
	}
	return w.wrapped.Write(p)
}

// Close flushes and closes the temporary file, then renames it into
// place. If flushing or closing fails, the temporary file is removed
// rather than promoted; if the final rename fails, it is left in place.
func (w *AtomicWriter) Close() error {
	if w.bw != nil {
		if err := w.bw.Flush(); err != nil {
			w.file.Close()
			os.Remove(w.tmpPath)
			return err
		}
	} else if err := w.wrapped.Close(); err != nil {
		w.file.Close()
		os.Remove(w.tmpPath)
		return err
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return err
	}
	return os.Rename(w.tmpPath, w.path)
}

// Abandon removes the temporary file without promoting it, for
// callers that hit an error before any Write/Close was attempted.
func (w *AtomicWriter) Abandon() {
	w.file.Close()
	os.Remove(w.tmpPath)
}

// OpenCompressed opens path for reading, transparently unwrapping the
// given codec.
func OpenCompressed(path string, codec Codec) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch codec {
	case CodecSnappy:
		return wrapReader{Reader: snappy.NewReader(f), Closer: f}, nil
	case CodecLZ4:
		return wrapReader{Reader: lz4.NewReader(f), Closer: f}, nil
	default:
		return f, nil
	}
}

type wrapReader struct {
	io.Reader
	io.Closer
}

// InProgressSentinelPath returns the temporary path AtomicWriter uses
// for path, so callers can check for and clean up a crashed write
// before starting a new one (the same resumability check
// internal/precompute runs for `.minimiser.in_progress` files).
func InProgressSentinelPath(path string) string {
	return path + ".in_progress"
}

// CleanStaleInProgress removes path's leftover .in_progress sentinel,
// if any, so a fresh build doesn't mistake a crashed partial write
// for a completed one.
func CleanStaleInProgress(path string) error {
	sentinel := InProgressSentinelPath(path)
	if _, err := os.Stat(sentinel); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(sentinel)
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// PartitionPath returns the on-disk name for partition idx of a
// multi-part index written at basePath, matching raptor's
// `<path>_0`, `<path>_1`, ... convention.
func PartitionPath(basePath string, idx int) string {
	return filepath.Join(filepath.Dir(basePath), filepath.Base(basePath)) + "_" + strconv.Itoa(idx)
}
