package reader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// MinimiserFileReader is the precomputed-minimiser variant of the
// reader facade: it replays a raw little-endian u64 array verbatim,
// as produced by internal/precompute (C4).
type MinimiserFileReader struct{}

func (MinimiserFileReader) rawForEach(files []string, callback func(uint64)) error {
	for _, path := range files {
		if err := forEachInMinimiserFile(path, callback); err != nil {
			return fmt.Errorf("reader: %s: %w", path, err)
		}
	}
	return nil
}

func forEachInMinimiserFile(path string, callback func(uint64)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	var buf [8]byte
	for {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		callback(binary.LittleEndian.Uint64(buf[:]))
	}
}

func (m MinimiserFileReader) HashInto(files []string, sink func(uint64)) error {
	return dedupeInto(func(cb func(uint64)) error { return m.rawForEach(files, cb) }, sink)
}

func (m MinimiserFileReader) HashIntoIf(files []string, sink func(uint64), predicate func(uint64) bool) error {
	return dedupeIntoIf(func(cb func(uint64)) error { return m.rawForEach(files, cb) }, sink, predicate)
}

func (m MinimiserFileReader) ForEachHash(files []string, callback func(uint64)) error {
	return m.rawForEach(files, callback)
}
