// Package hibf implements the Hierarchical Interleaved Bloom Filter
// (C8, C9): a tree of internal/ibf.IBF instances connected by
// parent/child technical-bin pointers, plus the insert/delete
// mutations that keep that tree consistent as user bins come and go.
package hibf

import (
	"fmt"

	"github.com/kshedden/raptor/internal/ibf"
)

// BinKind tags a technical bin with what it currently holds.
type BinKind int64

const (
	// BinLeaf bins hold exactly one user bin (or a split fragment of
	// one) and have no child IBF. Encoded structurally by next_ibf_id
	// pointing back at the owning IBF itself (a self-loop sentinel),
	// not by this type; BinLeaf is the UserBinID value AddIBF gives
	// every bin before SetUserBin or MarkMerged assigns it.
	BinLeaf BinKind = -1
	// BinMerged marks a technical bin whose content is the union of
	// several user bins, represented by a child IBF rather than a
	// direct user-bin id.
	BinMerged BinKind = -2
	// BinDeleted marks a technical bin that used to hold a user bin
	// that has since been removed; the slot is reusable by a future
	// insert.
	BinDeleted BinKind = -3
)

// Location addresses one technical bin: which IBF, and which bin
// within it.
type Location struct {
	IBFIdx int
	BinIdx int
}

// Tree is the full hierarchical index: one IBF per node, connected by
// next_ibf_id (parent -> child) and prev_ibf_id (child -> parent)
// tables indexed by IBF id, exactly as
// raptor::hibf::build_data/hierarchical_interleaved_bloom_filter lay
// them out.
type Tree struct {
	IBFs []*ibf.IBF

	// NextIBFID[i][b] is the child IBF id technical bin b of IBF i
	// descends into. A self-loop (NextIBFID[i][b] == i) marks a leaf
	// bin with no child, the encoding hibf.hpp uses instead of a
	// separate "has child" flag.
	NextIBFID [][]int

	// PrevIBFID[i] is the parent location of IBF i (its IBF id is
	// always < i in build order; the root's prev is itself).
	PrevIBFID []Location

	// UserBinID[i][b] is the user bin id occupying bin b of IBF i, or
	// one of the BinKind sentinels when b is a merged/deleted slot.
	UserBinID [][]int64

	hashCount int
	fpr       float64
}

// New returns an empty tree ready to receive IBFs via AddIBF.
func New(hashCount int, fpr float64) *Tree {
	return &Tree{hashCount: hashCount, fpr: fpr}
}

// HashCount returns h, shared by every IBF in the tree.
func (t *Tree) HashCount() int { return t.hashCount }

// FPR returns the target false positive rate the tree was sized for.
func (t *Tree) FPR() float64 { return t.fpr }

// AddIBF appends a new IBF node to the tree and returns its id.
// parent is the Location of the technical bin this IBF descends from;
// pass Location{IBFIdx: -1} for the root.
func (t *Tree) AddIBF(filter *ibf.IBF, parent Location) int {
	id := len(t.IBFs)
	t.IBFs = append(t.IBFs, filter)

	next := make([]int, filter.BinCount())
	for b := range next {
		next[b] = id // self-loop: leaf until proven otherwise
	}
	t.NextIBFID = append(t.NextIBFID, next)

	if parent.IBFIdx < 0 {
		parent = Location{IBFIdx: id, BinIdx: 0}
	}
	t.PrevIBFID = append(t.PrevIBFID, parent)

	ubin := make([]int64, filter.BinCount())
	for b := range ubin {
		ubin[b] = int64(BinLeaf)
	}
	t.UserBinID = append(t.UserBinID, ubin)

	if parent.IBFIdx != id {
		t.NextIBFID[parent.IBFIdx][parent.BinIdx] = id
	}

	return id
}

// IsLeafBin reports whether bin b of IBF i has no child IBF.
func (t *Tree) IsLeafBin(i, b int) bool {
	return t.NextIBFID[i][b] == i
}

// IsMergedBin reports whether bin b of IBF i holds a merged subtree.
func (t *Tree) IsMergedBin(i, b int) bool {
	return !t.IsLeafBin(i, b) || t.UserBinID[i][b] == int64(BinMerged)
}

// SetUserBin records that technical bin (i,b) directly stores user
// bin userBinID (a leaf, not a merged, assignment).
func (t *Tree) SetUserBin(i, b int, userBinID int64) error {
	if i < 0 || i >= len(t.IBFs) {
		return fmt.Errorf("hibf: ibf index %d out of range", i)
	}
	if b < 0 || b >= t.IBFs[i].BinCount() {
		return fmt.Errorf("hibf: bin index %d out of range for ibf %d", b, i)
	}
	t.UserBinID[i][b] = userBinID
	return nil
}

// MarkMerged records that technical bin (i,b) is a merged node whose
// content lives in a child IBF (added separately via AddIBF).
func (t *Tree) MarkMerged(i, b int) {
	t.UserBinID[i][b] = int64(BinMerged)
}

// UserBinCount returns the number of distinct user bin ids directly
// referenced in the tree's leaf/split slots (merged and deleted slots
// do not count).
func (t *Tree) UserBinCount() int {
	seen := make(map[int64]struct{})
	for _, row := range t.UserBinID {
		for _, id := range row {
			if id >= 0 {
				seen[int64(id)] = struct{}{}
			}
		}
	}
	return len(seen)
}
