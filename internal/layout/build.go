package layout

import (
	"fmt"
	"sort"

	"github.com/kshedden/raptor/internal/hibf"
	"github.com/kshedden/raptor/internal/hll"
	"github.com/kshedden/raptor/internal/ibf"
)

// HashLoader returns the deduplicated minimiser hash set for a user
// bin's source files. Callers wire this to internal/reader +
// internal/minimiser; layout itself only consumes the resulting
// hashes, the same separation of concerns
// create_ibfs_from_chopper_pack.cpp keeps between file I/O and tree
// assembly.
type HashLoader func(filenames []string) ([]uint64, error)

// resolvedNode is the in-memory tree assembled from Header+Records
// before any internal/hibf.Tree node exists: every leaf's hash set is
// already loaded, and every internal node already knows the union its
// subtree contributes upward. Building this pure data structure first
// (instead of interleaving loads with tree construction, as
// hierarchical_build.cpp does with a single recursive pass guarded by
// a lemon graph) lets the final pass size and create each IBF knowing
// its true max-bin cardinality up front.
type resolvedNode struct {
	technicalBins int
	maxBinIndex   int // -1: no header declaration, use the observed max

	leaves   map[int]leaf
	children map[int]*resolvedNode

	combined []uint64 // this subtree's full hash set, for the parent's merged bin
}

type leaf struct {
	filenames []string
	hashes    []uint64

	// splitBins is the number of consecutive technical bins this
	// user bin's content is divided across (P in the spec's
	// multi-bin FPR correction), 1 when the user bin fits a single
	// bin.
	splitBins int
}

// resolve builds the resolvedNode tree from records, loading every
// leaf's hash set via load and unioning child sets upward.
func resolve(header Header, records []Record, load HashLoader) (*resolvedNode, error) {
	root := &resolvedNode{maxBinIndex: header.TopLevelMaxBin}
	nodeAt := map[string]*resolvedNode{"": root}

	for _, rec := range records {
		if len(rec.BinIndices) == 0 {
			return nil, fmt.Errorf("layout: record %v has an empty bin-index stack", rec.Filenames)
		}

		cur := root
		for i := 0; i < len(rec.BinIndices)-1; i++ {
			bin, count := rec.BinIndices[i], rec.NumberOfBins[i]
			if bin+count > cur.technicalBins {
				cur.technicalBins = bin + count
			}
			key := path(rec.BinIndices, i+1)
			child, ok := nodeAt[key]
			if !ok {
				child = &resolvedNode{maxBinIndex: -1}
				if mb, ok := header.MergedMaxBin[key]; ok {
					child.maxBinIndex = mb
				}
				nodeAt[key] = child
				if cur.children == nil {
					cur.children = map[int]*resolvedNode{}
				}
				cur.children[bin] = child
			}
			cur = child
		}

		bin := rec.BinIndices[len(rec.BinIndices)-1]
		count := rec.NumberOfBins[len(rec.NumberOfBins)-1]
		if bin+count > cur.technicalBins {
			cur.technicalBins = bin + count
		}

		hashes, err := load(rec.Filenames)
		if err != nil {
			return nil, fmt.Errorf("layout: loading %v: %w", rec.Filenames, err)
		}
		if cur.leaves == nil {
			cur.leaves = map[int]leaf{}
		}
		if count < 1 {
			count = 1
		}
		cur.leaves[bin] = leaf{filenames: rec.Filenames, hashes: hashes, splitBins: count}
	}

	var union func(n *resolvedNode)
	union = func(n *resolvedNode) {
		var all []uint64
		for _, l := range n.leaves {
			all = append(all, l.hashes...)
		}
		for _, c := range n.children {
			union(c)
			all = append(all, c.combined...)
		}
		n.combined = all
	}
	union(root)

	return root, nil
}

// Tree is the outcome of Build: the assembled hibf.Tree plus the
// UB-id -> file-path table (indexed by user bin id) the search
// manifest header needs.
type Tree struct {
	Tree    *hibf.Tree
	BinPath [][]string
}

// Build parses a layout file's already-parsed Header/Records (see
// Parse) into a complete internal/hibf.Tree: one IBF per internal
// node, sized from its own max-bin's hash-set cardinality via
// internal/hll.BinSizeBits, technical bins filled depth-first so every
// child IBF exists before its parent inserts the child's merged hash
// set into the corresponding bin.
func Build(header Header, records []Record, load HashLoader, hashCount int, fpr float64) (*Tree, error) {
	root, err := resolve(header, records, load)
	if err != nil {
		return nil, err
	}

	tree := hibf.New(hashCount, fpr)
	var binPath [][]string
	var nextUserBinID int64

	var build func(n *resolvedNode, parent hibf.Location) (int, error)
	build = func(n *resolvedNode, parent hibf.Location) (int, error) {
		if n.technicalBins == 0 {
			n.technicalBins = maxBinKey(n) + 1
		}

		maxBin, maxCard, maxSplit := selectMaxBin(n)
		if maxCard == 0 {
			// An entirely empty max bin (a merged node whose subtree
			// has no content yet): size for one element rather than
			// rejecting the build outright.
			maxCard = 1
		}
		binWidth, err := hll.BinSizeBits(maxCard, hashCount, fpr, maxSplit)
		if err != nil {
			return 0, fmt.Errorf("layout: sizing bin %d: %w", maxBin, err)
		}

		filter, err := ibf.New(n.technicalBins, binWidth, hashCount)
		if err != nil {
			return 0, fmt.Errorf("layout: creating ibf: %w", err)
		}
		ibfIdx := tree.AddIBF(filter, parent)

		leafBins := make([]int, 0, len(n.leaves))
		for bin := range n.leaves {
			leafBins = append(leafBins, bin)
		}
		sort.Ints(leafBins)

		// User bin ids are assigned in ascending bin-index order so a
		// given layout always yields the same ids, independent of Go's
		// randomised map iteration order.
		for _, bin := range leafBins {
			l := n.leaves[bin]
			id := nextUserBinID
			nextUserBinID++

			if l.splitBins <= 1 {
				for _, h := range l.hashes {
					filter.Emplace(h, bin)
				}
				if err := tree.SetUserBin(ibfIdx, bin, id); err != nil {
					return 0, err
				}
			} else {
				// Naive splitting: divide the hash set into splitBins
				// contiguous chunks and emplace each into its own
				// consecutive technical bin, the same chunking
				// insert_into_ibf's number_of_bins > 1 branch does.
				chunkSize := len(l.hashes)/l.splitBins + 1
				for i, h := range l.hashes {
					sub := i / chunkSize
					if sub >= l.splitBins {
						sub = l.splitBins - 1
					}
					filter.Emplace(h, bin+sub)
				}
				for sub := 0; sub < l.splitBins; sub++ {
					if err := tree.SetUserBin(ibfIdx, bin+sub, id); err != nil {
						return 0, err
					}
				}
			}

			for int64(len(binPath)) <= id {
				binPath = append(binPath, nil)
			}
			binPath[id] = l.filenames
		}

		childBins := make([]int, 0, len(n.children))
		for bin := range n.children {
			childBins = append(childBins, bin)
		}
		sort.Ints(childBins)

		for _, bin := range childBins {
			child := n.children[bin]
			tree.MarkMerged(ibfIdx, bin)
			if _, err := build(child, hibf.Location{IBFIdx: ibfIdx, BinIdx: bin}); err != nil {
				return 0, err
			}
			for _, h := range child.combined {
				filter.Emplace(h, bin)
			}
		}

		return ibfIdx, nil
	}

	if _, err := build(root, hibf.Location{IBFIdx: -1}); err != nil {
		return nil, err
	}

	return &Tree{Tree: tree, BinPath: binPath}, nil
}

func maxBinKey(n *resolvedNode) int {
	max := 0
	for bin := range n.leaves {
		if bin > max {
			max = bin
		}
	}
	for bin := range n.children {
		if bin > max {
			max = bin
		}
	}
	return max
}

// selectMaxBin returns the technical bin, its exact hash-set
// cardinality, and its split-bin count (P) that this node's IBF
// should be sized against: the header-declared max bin when present
// (its cardinality is still needed, so it is counted exactly -- no
// estimation avoids any work since it's already the chosen bin),
// otherwise whichever bin (leaf or merged) hll.Sketch estimates holds
// the most distinct hashes, exactly recounted only for that winner.
func selectMaxBin(n *resolvedNode) (int, uint64, int) {
	hashesOf := func(bin int) ([]uint64, bool) {
		if l, ok := n.leaves[bin]; ok {
			return l.hashes, true
		}
		if c, ok := n.children[bin]; ok {
			return c.combined, true
		}
		return nil, false
	}
	splitOf := func(bin int) int {
		if l, ok := n.leaves[bin]; ok && l.splitBins > 1 {
			return l.splitBins
		}
		return 1
	}

	if n.maxBinIndex >= 0 {
		if hashes, ok := hashesOf(n.maxBinIndex); ok {
			return n.maxBinIndex, hll.ExactCardinality(hashes), splitOf(n.maxBinIndex)
		}
	}

	bins := make([]int, 0, len(n.leaves)+len(n.children))
	for bin := range n.leaves {
		bins = append(bins, bin)
	}
	for bin := range n.children {
		bins = append(bins, bin)
	}
	if len(bins) == 0 {
		return 0, 0, 1
	}

	sketch := hll.New()
	bestBin, bestEstimate := bins[0], uint64(0)
	for _, bin := range bins {
		hashes, _ := hashesOf(bin)
		sketch.Reset()
		sketch.AddAll(hashes)
		if est := sketch.Estimate(); est >= bestEstimate {
			bestBin, bestEstimate = bin, est
		}
	}

	hashes, _ := hashesOf(bestBin)
	return bestBin, hll.ExactCardinality(hashes), splitOf(bestBin)
}
