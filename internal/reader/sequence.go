package reader

import (
	"fmt"

	"github.com/kshedden/raptor/internal/minimiser"
	"github.com/kshedden/raptor/internal/shape"
)

// SequenceReader is the sequence-file variant of the reader facade:
// it reads FASTA/FASTQ (optionally gzip/bz2-compressed) and applies
// the C1 -> C2 minimiser pipeline per record.
type SequenceReader struct {
	Shape      shape.Shape
	WindowSize int
}

// NewSequenceReader builds a SequenceReader for the given shape and
// window size (window size must be >= shape.Size).
func NewSequenceReader(sh shape.Shape, windowSize int) *SequenceReader {
	return &SequenceReader{Shape: sh, WindowSize: windowSize}
}

func (sr *SequenceReader) rawForEach(files []string, callback func(uint64)) error {
	for _, path := range files {
		if err := sr.forEachInFile(path, callback); err != nil {
			return fmt.Errorf("reader: %s: %w", path, err)
		}
	}
	return nil
}

func (sr *SequenceReader) forEachInFile(path string, callback func(uint64)) error {
	rc, err := openSeqFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	rs := newRecordScanner(rc)
	for {
		_, seq, ok := rs.Next()
		if !ok {
			break
		}
		minimiser.Stream(sr.Shape, sr.WindowSize, seq, callback)
	}
	return rs.Err()
}

func (sr *SequenceReader) HashInto(files []string, sink func(uint64)) error {
	return dedupeInto(func(cb func(uint64)) error { return sr.rawForEach(files, cb) }, sink)
}

func (sr *SequenceReader) HashIntoIf(files []string, sink func(uint64), predicate func(uint64) bool) error {
	return dedupeIntoIf(func(cb func(uint64)) error { return sr.rawForEach(files, cb) }, sink, predicate)
}

func (sr *SequenceReader) ForEachHash(files []string, callback func(uint64)) error {
	return sr.rawForEach(files, callback)
}
