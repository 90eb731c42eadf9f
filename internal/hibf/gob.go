package hibf

import (
	"bytes"
	"encoding/gob"

	"github.com/kshedden/raptor/internal/ibf"
)

// wireTree mirrors Tree with its private hashCount/fpr fields
// exported, so gob (used by internal/index for the archive body) can
// round-trip a full tree.
type wireTree struct {
	IBFs      []*ibf.IBF
	NextIBFID [][]int
	PrevIBFID []Location
	UserBinID [][]int64
	HashCount int
	FPR       float64
}

// GobEncode implements gob.GobEncoder.
func (t *Tree) GobEncode() ([]byte, error) {
	w := wireTree{
		IBFs:      t.IBFs,
		NextIBFID: t.NextIBFID,
		PrevIBFID: t.PrevIBFID,
		UserBinID: t.UserBinID,
		HashCount: t.hashCount,
		FPR:       t.fpr,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (t *Tree) GobDecode(data []byte) error {
	var w wireTree
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	t.IBFs = w.IBFs
	t.NextIBFID = w.NextIBFID
	t.PrevIBFID = w.PrevIBFID
	t.UserBinID = w.UserBinID
	t.hashCount = w.HashCount
	t.fpr = w.FPR
	return nil
}
