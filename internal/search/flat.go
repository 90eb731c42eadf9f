package search

import (
	"github.com/kshedden/raptor/internal/ibf"
	"github.com/kshedden/raptor/internal/partition"
)

// FlatIndex adapts a single non-hierarchical internal/ibf.IBF to the
// Index interface, for the single-IBF case (Parts==1, IsHIBF==false).
// User bin ids are the technical bin index itself, since a flat index
// has no merged bins and no UserBinID indirection.
type FlatIndex struct {
	Filter *ibf.IBF
}

// NewFlatIndex wraps filter for querying.
func NewFlatIndex(filter *ibf.IBF) *FlatIndex {
	return &FlatIndex{Filter: filter}
}

// Query implements Index. A fresh Agent is built per call: Driver.Run
// queries concurrently from many goroutines, and Agent's scratch
// buffer is only safe for sequential reuse by a single caller, the
// same contract internal/hibf.Tree.Query follows with its own
// per-call agent cache.
func (f *FlatIndex) Query(hashes []uint64, threshold uint16) []int64 {
	agent := ibf.NewAgent(f.Filter)
	bins := agent.MembershipFor(hashes, threshold)
	out := make([]int64, len(bins))
	for i, b := range bins {
		out[i] = int64(b)
	}
	return out
}

// PartitionedFlatIndex adapts P self-contained IBF partitions (C6) to
// the Index interface. Every partition shares the same bin space (one
// bin index means the same user bin in every partition); a query's
// per-bin count sums across partitions before the threshold is
// applied once, so a minimiser whose occurrences happen to fall in
// different partitions isn't double-penalised.
type PartitionedFlatIndex struct {
	Filters []*ibf.IBF
	Router  *partition.Router
}

// NewPartitionedFlatIndex wraps filters (one per partition, in
// partition-index order) for querying via router.
func NewPartitionedFlatIndex(filters []*ibf.IBF, router *partition.Router) *PartitionedFlatIndex {
	return &PartitionedFlatIndex{Filters: filters, Router: router}
}

func (f *PartitionedFlatIndex) Query(hashes []uint64, threshold uint16) []int64 {
	byPartition := f.Router.Split(hashes)

	var total []uint16
	for p, part := range byPartition {
		if len(part) == 0 {
			continue
		}
		agent := ibf.NewAgent(f.Filters[p])
		counts := agent.BulkCount(part)
		if total == nil {
			total = counts
			continue
		}
		for bin, c := range counts {
			total[bin] += c
		}
	}

	var out []int64
	for bin, c := range total {
		if c >= threshold {
			out = append(out, int64(bin))
		}
	}
	return out
}
