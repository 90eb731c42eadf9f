// Package ibf implements the Interleaved Bloom Filter (C5): a
// bit-sliced Bloom-filter-of-Bloom-filters answering batched
// membership queries across B bins in one cache-friendly sweep.
//
// Storage layout follows spec 4: bit (row*B + bin) is set when hash
// function `row` maps some inserted element of `bin` to row `row`.
// Bins are packed 64 to a machine word so that, for a fixed row, an
// entire range of bins can be tested in one word operation -- the
// AND-reduce across hash functions in internal/ibf/agent.go is the
// spec's "bin axis as the inner loop" hot path.
package ibf

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// MaxHashCount is the largest supported number of hash functions.
const MaxHashCount = 5

// hashSeeds are h independent constants the row hash is derived from.
// Fixed across build and search, as spec 4.5 requires.
var hashSeeds = [MaxHashCount]uint64{
	0x8F3F73B5CF1C9ADE,
	0x2545F4914F6CDD1D,
	0xC6A4A7935BD1E995,
	0xFF51AFD7ED558CCD,
	0x9E3779B97F4A7C15,
}

// IBF is a fixed-size, B-binned interleaved Bloom filter.
type IBF struct {
	binCount    int
	binWidth    uint64 // w_b, number of rows
	hashCount   int
	wordsPerBin int // ceil(binCount/64)
	bitmap      []uint64
	occupancy   []uint64
}

// New allocates a zeroed IBF with binCount bins, binWidth bits per
// bin (rows), and hashCount independent hash functions.
func New(binCount int, binWidth uint64, hashCount int) (*IBF, error) {
	if binCount <= 0 {
		return nil, fmt.Errorf("ibf: bin_count must be positive, got %d", binCount)
	}
	if binWidth == 0 {
		return nil, fmt.Errorf("ibf: bin_width must be positive")
	}
	if hashCount < 1 || hashCount > MaxHashCount {
		return nil, fmt.Errorf("ibf: hash_count must be in [1,%d], got %d", MaxHashCount, hashCount)
	}
	wordsPerBin := (binCount + 63) / 64
	return &IBF{
		binCount:    binCount,
		binWidth:    binWidth,
		hashCount:   hashCount,
		wordsPerBin: wordsPerBin,
		bitmap:      make([]uint64, wordsPerBin*int(binWidth)),
		occupancy:   make([]uint64, binCount),
	}, nil
}

// BinCount returns B.
func (f *IBF) BinCount() int { return f.binCount }

// BinWidth returns w_b, the number of rows (bits per bin per hash function bucket).
func (f *IBF) BinWidth() uint64 { return f.binWidth }

// HashCount returns h.
func (f *IBF) HashCount() int { return f.hashCount }

// BitSize returns the total number of bits allocated.
func (f *IBF) BitSize() uint64 { return f.binWidth * uint64(f.binCount) }

// Occupancy returns the per-bin element counts (for cleanup
// decisions, not membership).
func (f *IBF) Occupancy() []uint64 { return f.occupancy }

// row computes H_i(hash) mod binWidth using an xxhash-mixed variant of
// hash seeded by a fixed per-hash-function constant, reduced to
// [0, binWidth) via Lemire fast-ranging (a 64x64->128 multiply,
// keeping the high word) rather than a modulo.
func (f *IBF) row(hash uint64, i int) uint64 {
	seeded := hash ^ hashSeeds[i]
	var buf [8]byte
	buf[0] = byte(seeded)
	buf[1] = byte(seeded >> 8)
	buf[2] = byte(seeded >> 16)
	buf[3] = byte(seeded >> 24)
	buf[4] = byte(seeded >> 32)
	buf[5] = byte(seeded >> 40)
	buf[6] = byte(seeded >> 48)
	buf[7] = byte(seeded >> 56)
	mixed := xxhash.Sum64(buf[:])
	hi, _ := mul64(mixed, f.binWidth)
	return hi
}

// mul64 returns the 128-bit product of x and y split into (hi, lo).
func mul64(x, y uint64) (hi, lo uint64) {
	const mask32 = 1<<32 - 1
	x0, x1 := x&mask32, x>>32
	y0, y1 := y&mask32, y>>32
	w0 := x0 * y0
	t := x1*y0 + w0>>32
	w1 := t & mask32
	w2 := t >> 32
	w1 += x0 * y1
	hi = x1*y1 + w2 + w1>>32
	lo = x * y
	return
}

// Emplace inserts hash into bin, setting h row bits. Safe for
// concurrent callers writing to distinct bins of the same IBF (the
// underlying word is updated with an atomic OR, per spec 5's
// bin-parallel build pattern).
func (f *IBF) Emplace(hash uint64, bin int) {
	wordIdx := bin / 64
	bit := uint64(1) << uint(bin%64)
	for i := 0; i < f.hashCount; i++ {
		row := f.row(hash, i)
		idx := int(row)*f.wordsPerBin + wordIdx
		atomic.OrUint64(&f.bitmap[idx], bit)
	}
	atomic.AddUint64(&f.occupancy[bin], 1)
}

// Clear zeroes bin's column across all rows and resets its occupancy.
func (f *IBF) Clear(bin int) {
	wordIdx := bin / 64
	mask := ^(uint64(1) << uint(bin%64))
	for row := 0; row < int(f.binWidth); row++ {
		idx := row*f.wordsPerBin + wordIdx
		f.bitmap[idx] &= mask
	}
	f.occupancy[bin] = 0
}

// ClearBins clears multiple bins in one pass, matching the batched
// clear() the original delete_user_bins implementation performs per
// IBF (one pass over rows, not one pass per bin).
func (f *IBF) ClearBins(bins []int) {
	if len(bins) == 0 {
		return
	}
	wordMask := make(map[int]uint64, len(bins))
	for _, bin := range bins {
		wordIdx := bin / 64
		bit := uint64(1) << uint(bin%64)
		if m, ok := wordMask[wordIdx]; ok {
			wordMask[wordIdx] = m | bit
		} else {
			wordMask[wordIdx] = bit
		}
	}
	for row := 0; row < int(f.binWidth); row++ {
		base := row * f.wordsPerBin
		for wordIdx, bits := range wordMask {
			f.bitmap[base+wordIdx] &^= bits
		}
	}
	for _, bin := range bins {
		f.occupancy[bin] = 0
	}
}
