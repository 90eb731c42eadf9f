package ibf

import (
	"bytes"
	"encoding/gob"
)

// wireIBF mirrors IBF's private fields under exported names so gob
// (which cannot see unexported fields) can (de)serialize an IBF as
// part of the index archive in internal/index.
type wireIBF struct {
	BinCount    int
	BinWidth    uint64
	HashCount   int
	WordsPerBin int
	Bitmap      []uint64
	Occupancy   []uint64
}

// GobEncode implements gob.GobEncoder.
func (f *IBF) GobEncode() ([]byte, error) {
	w := wireIBF{
		BinCount:    f.binCount,
		BinWidth:    f.binWidth,
		HashCount:   f.hashCount,
		WordsPerBin: f.wordsPerBin,
		Bitmap:      f.bitmap,
		Occupancy:   f.occupancy,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (f *IBF) GobDecode(data []byte) error {
	var w wireIBF
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	f.binCount = w.BinCount
	f.binWidth = w.BinWidth
	f.hashCount = w.HashCount
	f.wordsPerBin = w.WordsPerBin
	f.bitmap = w.Bitmap
	f.occupancy = w.Occupancy
	return nil
}
