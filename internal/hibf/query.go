package hibf

import (
	"sort"

	"github.com/kshedden/raptor/internal/ibf"
)

// agentFor lazily builds and caches one query agent per IBF node so
// repeated queries against the same tree don't re-allocate scratch
// buffers, mirroring internal/ibf.Agent's own reuse contract.
type agentFor struct {
	agents []*ibf.Agent
}

func newAgentCache(t *Tree) *agentFor {
	return &agentFor{agents: make([]*ibf.Agent, len(t.IBFs))}
}

func (a *agentFor) get(t *Tree, i int) *ibf.Agent {
	if a.agents[i] == nil {
		a.agents[i] = ibf.NewAgent(t.IBFs[i])
	}
	return a.agents[i]
}

// Query traverses the tree top-down starting at the root IBF,
// descending into merged bins whose hit count reaches threshold and
// collecting every leaf user bin id whose technical bin(s) also reach
// threshold. threshold is normally produced per query by the C10
// threshold engine for the query's length and error budget.
//
// A user bin too large for one technical bin is split across several
// consecutive bins at build time (see internal/layout), each holding
// only a fragment of that user bin's k-mer set. Those fragment counts
// are summed by user-bin id before the threshold check, the same way
// a single unsplit bin's count would be checked, since the threshold
// is defined against the whole user bin's content, not one fragment.
func (t *Tree) Query(hashes []uint64, threshold uint16) []int64 {
	if len(t.IBFs) == 0 {
		return nil
	}
	cache := newAgentCache(t)
	seen := make(map[int64]struct{})

	var visit func(i int)
	visit = func(i int) {
		counts := cache.get(t, i).BulkCount(hashes)

		leafTotals := make(map[int64]uint16)
		for b, c := range counts {
			if t.IsMergedBin(i, b) {
				if c < threshold {
					continue
				}
				child := t.NextIBFID[i][b]
				if child != i {
					visit(child)
				}
				continue
			}
			if id := t.UserBinID[i][b]; id >= 0 {
				leafTotals[id] += c
			}
		}
		for id, total := range leafTotals {
			if total >= threshold {
				seen[id] = struct{}{}
			}
		}
	}
	visit(0)

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
