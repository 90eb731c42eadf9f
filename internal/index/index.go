// Package index implements the versioned on-disk archive (C11): the
// serialized form of either a flat internal/ibf.IBF or a full
// internal/hibf.Tree, together with the build parameters (window
// size, shape, partition count, bin paths, target FPR) needed to
// reopen it for searching. Layout follows raptor_index: a version tag
// first, so a mismatched reader fails fast with a clear "run upgrade"
// error instead of misinterpreting bytes.
package index

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/kshedden/raptor/internal/hibf"
	"github.com/kshedden/raptor/internal/ibf"
	"github.com/kshedden/raptor/internal/ioutil"
	"github.com/kshedden/raptor/internal/shape"
)

// Version is the current archive format version. A reader refuses to
// load any other version.
const Version uint32 = 3

// Index is the full on-disk index: build-time metadata plus exactly
// one of Flat (a single IBF) or Hierarchical (a full HIBF tree).
type Index struct {
	WindowSize int
	Shape      shape.Shape
	Parts      int
	BinPath    [][]string
	FPR        float64
	HashCount  int
	IsHIBF     bool

	Flat         *ibf.IBF
	Hierarchical *hibf.Tree
}

// wireIndex is the gob-serialized envelope, Version as its first
// field. Unmarshal decodes the whole envelope and then rejects any
// Version other than the current one, so a file at another version
// reports a clean version error rather than being used.
type wireIndex struct {
	Version      uint32
	WindowSize   int
	Shape        shape.Shape
	Parts        int
	BinPath      [][]string
	FPR          float64
	HashCount    int
	IsHIBF       bool
	Flat         *ibf.IBF
	Hierarchical *hibf.Tree
}

// Marshal serializes idx into its wire form, version tag first.
func (idx *Index) Marshal() ([]byte, error) {
	w := wireIndex{
		Version:      Version,
		WindowSize:   idx.WindowSize,
		Shape:        idx.Shape,
		Parts:        idx.Parts,
		BinPath:      idx.BinPath,
		FPR:          idx.FPR,
		HashCount:    idx.HashCount,
		IsHIBF:       idx.IsHIBF,
		Flat:         idx.Flat,
		Hierarchical: idx.Hierarchical,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("index: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data produced by Marshal into idx, rejecting
// anything whose version tag doesn't match Version.
func Unmarshal(data []byte) (*Index, error) {
	var w wireIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, fmt.Errorf("index: unmarshal: %w", err)
	}
	if w.Version != Version {
		return nil, fmt.Errorf("index: unsupported archive version %d (expected %d); run `raptor upgrade`", w.Version, Version)
	}
	return &Index{
		WindowSize:   w.WindowSize,
		Shape:        w.Shape,
		Parts:        w.Parts,
		BinPath:      w.BinPath,
		FPR:          w.FPR,
		HashCount:    w.HashCount,
		IsHIBF:       w.IsHIBF,
		Flat:         w.Flat,
		Hierarchical: w.Hierarchical,
	}, nil
}

// Write serializes idx and writes it to path (or path_0, path_1, ...
// for each partition when idx.Parts > 1), using codec for on-disk
// compression and the same crash-safe atomic-rename write every other
// on-disk artifact in this module uses.
func Write(path string, idx *Index, codec ioutil.Codec) error {
	if idx.Parts <= 1 {
		return writeOne(path, idx, codec)
	}
	for p := 0; p < idx.Parts; p++ {
		if err := writeOne(ioutil.PartitionPath(path, p), idx, codec); err != nil {
			return fmt.Errorf("index: partition %d: %w", p, err)
		}
	}
	return nil
}

func writeOne(path string, idx *Index, codec ioutil.Codec) error {
	data, err := idx.Marshal()
	if err != nil {
		return err
	}
	w, err := ioutil.NewAtomicWriter(path, codec)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Abandon()
		return err
	}
	return w.Close()
}

// WriteParts writes indexes, one genuinely distinct, self-contained
// Index per partition (C6: each partition shards a different subset
// of hashes into its own IBF), to path's numbered partition files.
// Every element's Parts field should equal len(indexes); unlike
// Write with idx.Parts > 1 (which replicates a single Index's content
// across every partition path), this writes each element's own
// content to its own path.
func WriteParts(path string, indexes []*Index, codec ioutil.Codec) error {
	for p, idx := range indexes {
		if err := writeOne(ioutil.PartitionPath(path, p), idx, codec); err != nil {
			return fmt.Errorf("index: partition %d: %w", p, err)
		}
	}
	return nil
}

// Read loads a single (non-partitioned) index file written by Write.
func Read(path string, codec ioutil.Codec) (*Index, error) {
	r, err := ioutil.OpenCompressed(path, codec)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("index: read %s: %w", path, err)
	}
	return Unmarshal(buf.Bytes())
}

// ReadAnyVersion loads an index archive without rejecting a version
// mismatch, for `raptor upgrade`: unlike Read/Unmarshal, it decodes
// the wire struct regardless of its Version tag and reports the
// version found alongside the decoded Index, so the caller can
// rewrite it at the current Version. Any gob-level corruption still
// fails loudly; only the version check is skipped.
func ReadAnyVersion(path string, codec ioutil.Codec) (*Index, uint32, error) {
	r, err := ioutil.OpenCompressed(path, codec)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, 0, fmt.Errorf("index: read %s: %w", path, err)
	}

	var w wireIndex
	if err := gob.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&w); err != nil {
		return nil, 0, fmt.Errorf("index: unmarshal: %w", err)
	}
	return &Index{
		WindowSize:   w.WindowSize,
		Shape:        w.Shape,
		Parts:        w.Parts,
		BinPath:      w.BinPath,
		FPR:          w.FPR,
		HashCount:    w.HashCount,
		IsHIBF:       w.IsHIBF,
		Flat:         w.Flat,
		Hierarchical: w.Hierarchical,
	}, w.Version, nil
}

// ReadPartitioned loads every partition of an index written with
// Parts > 1, in partition order.
func ReadPartitioned(path string, parts int, codec ioutil.Codec) ([]*Index, error) {
	out := make([]*Index, parts)
	for p := 0; p < parts; p++ {
		idx, err := Read(ioutil.PartitionPath(path, p), codec)
		if err != nil {
			return nil, fmt.Errorf("index: partition %d: %w", p, err)
		}
		out[p] = idx
	}
	return out, nil
}
