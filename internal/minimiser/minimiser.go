// Package minimiser implements the window-minimum ("winnowing") step
// over a k-mer hash stream: a monotonic deque of (hash, position)
// pairs that emits the window minimum only when it changes.
package minimiser

import "github.com/kshedden/raptor/internal/shape"

type entry struct {
	pos  int
	hash uint64
}

// Producer maintains the sliding-window minimum over a stream of
// (position, hash) pairs. windowKmers is the number of consecutive
// k-mer hashes covered by one minimiser window, i.e. w - s + 1 for
// window size w and shape size s.
type Producer struct {
	windowKmers int
	deque       []entry
	pushed      int
	hasEmitted  bool
	last        uint64
}

// NewProducer constructs a Producer for the given number of k-mers
// per window (w - s + 1).
func NewProducer(windowKmers int) *Producer {
	if windowKmers < 1 {
		windowKmers = 1
	}
	return &Producer{windowKmers: windowKmers}
}

// Reset clears the deque, used whenever the underlying hash stream is
// interrupted (e.g. by an invalid base) so that no minimiser window
// spans the gap.
func (p *Producer) Reset() {
	p.deque = p.deque[:0]
	p.pushed = 0
}

// Push feeds one more (pos, hash) pair from a contiguous run of the
// hash stream. Positions within one contiguous run must be fed in
// increasing, consecutive order. yield is called with the new window
// minimum exactly when it differs from the previously emitted value
// (the canonical winnowing suppression rule); it is never called for
// windows that have not yet accumulated windowKmers hashes.
func (p *Producer) Push(pos int, hash uint64, yield func(hash uint64)) {
	for len(p.deque) > 0 && p.deque[0].pos <= pos-p.windowKmers {
		p.deque = p.deque[1:]
	}
	for len(p.deque) > 0 && p.deque[len(p.deque)-1].hash >= hash {
		p.deque = p.deque[:len(p.deque)-1]
	}
	p.deque = append(p.deque, entry{pos: pos, hash: hash})
	p.pushed++

	if p.pushed < p.windowKmers {
		return
	}
	minHash := p.deque[0].hash
	if !p.hasEmitted || minHash != p.last {
		p.hasEmitted = true
		p.last = minHash
		yield(minHash)
	}
}

// KmersPerWindow computes w - s + 1, clamped to at least 1 (the
// ungapped, windowless case w == s).
func KmersPerWindow(windowSize int, shapeSize int) int {
	n := windowSize - shapeSize + 1
	if n < 1 {
		return 1
	}
	return n
}

// Stream runs the full C1 -> C2 pipeline over seq: hashing under sh,
// then windowing with window size w, invoking yield once per emitted
// minimiser in sequence order.
func Stream(sh shape.Shape, windowSize int, seq []byte, yield func(hash uint64)) {
	p := NewProducer(KmersPerWindow(windowSize, int(sh.Size)))
	h := shape.NewHasher(sh)
	lastPos := -2
	h.ForEach(seq, func(pos int, hash uint64) {
		if pos != lastPos+1 {
			p.Reset()
		}
		p.Push(pos, hash, yield)
		lastPos = pos
	})
}

// Collect runs Stream and returns the minimiser hashes in order, for
// tests and small inputs.
func Collect(sh shape.Shape, windowSize int, seq []byte) []uint64 {
	var out []uint64
	Stream(sh, windowSize, seq, func(h uint64) {
		out = append(out, h)
	})
	return out
}

// CollectSet runs Stream and returns the distinct minimiser hashes as
// a set, which is what the search driver and threshold lookups need
// (the minimiser *count* is |distinct hashes|, not |emitted events|
// when the same window minimum could theoretically repeat across
// non-adjacent windows — the winnowing rule only suppresses adjacent
// repeats).
func CollectSet(sh shape.Shape, windowSize int, seq []byte) map[uint64]struct{} {
	out := make(map[uint64]struct{})
	Stream(sh, windowSize, seq, func(h uint64) {
		out[h] = struct{}{}
	})
	return out
}
