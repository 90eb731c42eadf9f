package ibf

import "math/bits"

// Agent is a reusable query workspace over an IBF. Callers doing many
// queries should keep one Agent rather than allocating per query, the
// same amortisation pattern muscato_screen.go uses for its per-worker
// scratch buffers.
type Agent struct {
	f      *IBF
	andBuf []uint64
}

// NewAgent returns a query agent bound to f.
func NewAgent(f *IBF) *Agent {
	return &Agent{f: f, andBuf: make([]uint64, f.wordsPerBin)}
}

// BulkCount returns, for each bin, the number of hashes in hashes
// that hit that bin (i.e. all h row bits were set). The bin axis is
// the inner loop: each hash function's row-word-range is AND-reduced
// across a full machine word at a time before the result bits are
// scattered into the per-bin counters.
func (a *Agent) BulkCount(hashes []uint64) []uint16 {
	f := a.f
	counts := make([]uint16, f.binCount)
	for _, hash := range hashes {
		row0 := f.row(hash, 0)
		base0 := int(row0) * f.wordsPerBin
		copy(a.andBuf, f.bitmap[base0:base0+f.wordsPerBin])
		for i := 1; i < f.hashCount; i++ {
			row := f.row(hash, i)
			base := int(row) * f.wordsPerBin
			for w := 0; w < f.wordsPerBin; w++ {
				a.andBuf[w] &= f.bitmap[base+w]
			}
		}
		for w := 0; w < f.wordsPerBin; w++ {
			word := a.andBuf[w]
			for word != 0 {
				bit := bits.TrailingZeros64(word)
				bin := w*64 + bit
				if bin < f.binCount {
					counts[bin]++
				}
				word &= word - 1
			}
		}
	}
	return counts
}

// MembershipFor returns the bins whose hit count meets threshold,
// in ascending bin order. threshold is normally the value the C10
// threshold engine computed for the query's length and error budget.
func (a *Agent) MembershipFor(hashes []uint64, threshold uint16) []int {
	counts := a.BulkCount(hashes)
	var bins []int
	for bin, c := range counts {
		if c >= threshold {
			bins = append(bins, bin)
		}
	}
	return bins
}
