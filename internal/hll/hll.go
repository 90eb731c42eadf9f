// Package hll implements the cardinality sketch (C7) used to pick the
// user bin that will dominate Bloom filter sizing without first
// hashing every bin's content twice: a 15-register-bit HyperLogLog
// estimates every bin cheaply via PickMax, then only the largest bin
// is re-hashed exactly, mirroring raptor's
// compute_bin_size/kmer_count_from_* two-pass strategy.
package hll

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/golang-collections/go-datastructures/bitarray"
)

// PrecisionBits is the number of bits used to select a register,
// fixed at 15 to match raptor's sketch width.
const PrecisionBits = 15

// registerCount is m = 2^PrecisionBits.
const registerCount = 1 << PrecisionBits

// Sketch is a HyperLogLog cardinality estimator over 64-bit hashes.
type Sketch struct {
	registers []uint8
	nonEmpty  bitarray.BitArray // mirrors which registers are != 0, for a fast popcount-free zero scan
}

// New returns an empty sketch.
func New() *Sketch {
	return &Sketch{
		registers: make([]uint8, registerCount),
		nonEmpty:  bitarray.NewBitArray(registerCount),
	}
}

// Reset clears the sketch back to empty, reusing its storage -- the
// same sketch.reset() the per-worker sketch in compute_bin_size is
// reused across bins for.
func (s *Sketch) Reset() {
	for i := range s.registers {
		s.registers[i] = 0
	}
	s.nonEmpty = bitarray.NewBitArray(registerCount)
}

// Add folds hash into the sketch.
func (s *Sketch) Add(hash uint64) {
	idx := hash >> (64 - PrecisionBits)
	rest := hash<<PrecisionBits | (1 << (PrecisionBits - 1))
	rho := uint8(bits.LeadingZeros64(rest)) + 1
	if rho > s.registers[idx] {
		if s.registers[idx] == 0 {
			s.nonEmpty.SetBit(idx)
		}
		s.registers[idx] = rho
	}
}

// AddAll folds every hash in hashes into the sketch.
func (s *Sketch) AddAll(hashes []uint64) {
	for _, h := range hashes {
		s.Add(h)
	}
}

// Estimate returns the estimated number of distinct values added,
// using the standard HyperLogLog bias correction (linear counting
// for the small-cardinality regime, raw estimate otherwise).
func (s *Sketch) Estimate() uint64 {
	m := float64(registerCount)
	sum := 0.0
	for _, r := range s.registers {
		sum += 1.0 / float64(uint64(1)<<r)
	}
	// zeros is read off the non-empty bitmap rather than rescanning
	// registers, so empty (never-touched) sketches skip straight to
	// linear counting without a second pass over 32768 bytes.
	zeros := registerCount - len(s.nonEmpty.ToNums())

	alpha := alphaFor(registerCount)
	raw := alpha * m * m / sum

	if raw <= 2.5*m && zeros > 0 {
		return uint64(math.Round(m * math.Log(m/float64(zeros))))
	}
	return uint64(math.Round(raw))
}

// Merge folds other's registers into s by taking the per-register
// maximum, the operation a merged technical bin's sketch uses to
// combine its children's sketches.
func (s *Sketch) Merge(other *Sketch) {
	for i, r := range other.registers {
		if r > s.registers[i] {
			if s.registers[i] == 0 {
				s.nonEmpty.SetBit(uint64(i))
			}
			s.registers[i] = r
		}
	}
}

// Clone returns an independent copy of s.
func (s *Sketch) Clone() *Sketch {
	out := New()
	copy(out.registers, s.registers)
	for i, r := range s.registers {
		if r != 0 {
			out.nonEmpty.SetBit(uint64(i))
		}
	}
	return out
}

func alphaFor(m int) float64 {
	switch m {
	case 16:
		return 0.673
	case 32:
		return 0.697
	case 64:
		return 0.709
	default:
		return 0.7213 / (1 + 1.079/float64(m))
	}
}

// ExactCardinality computes the true distinct count of hashes,
// bypassing estimation entirely. Used once the sketch pass has
// identified the biggest bin -- its accuracy is what ultimately
// drives Bloom filter sizing, so it is never left to the estimator.
func ExactCardinality(hashes []uint64) uint64 {
	seen := make(map[uint64]struct{}, len(hashes))
	for _, h := range hashes {
		seen[h] = struct{}{}
	}
	return uint64(len(seen))
}

// PickMax sketches every bin in hashSets and returns the index of the
// bin with the largest estimated cardinality, together with that
// bin's exact cardinality. It never materializes more than one
// distinct-value set at a time: every bin is folded into a throwaway
// sketch for the estimate, and ExactCardinality is paid for only the
// winner, the same two-pass shape kmer_count_from_sequence_files uses
// (sketch every bin, then robin_hood-count only the biggest).
func PickMax(hashSets [][]uint64) (index int, exact uint64) {
	bestIdx, bestEstimate := 0, uint64(0)
	s := New()
	for i, hashes := range hashSets {
		s.Reset()
		s.AddAll(hashes)
		if est := s.Estimate(); est >= bestEstimate {
			bestIdx, bestEstimate = i, est
		}
	}
	if len(hashSets) == 0 {
		return 0, 0
	}
	return bestIdx, ExactCardinality(hashSets[bestIdx])
}

// BinSizeBits computes w_b, the number of bits a single technical
// bin needs to store elementCount elements at the configured false
// positive rate with hashCount independent hash functions:
//
//	w_b = ceil(-(n*h) / ln(1 - FPR^(1/h)))
//
// identical to seqan::hibf::build::bin_size_in_bits. When splitBins is
// greater than 1, the user bin being sized is divided naively across
// that many consecutive technical bins (a build-time layout decision
// for oversized user bins); a query against that user bin counts as a
// hit if any of its split bins fires, so the per-bin FPR must be
// tightened so the combined probability across splitBins bins still
// meets fpr overall:
//
//	correction = ln(1 - (1 - (1-fpr)^splitBins)^(1/h)) / ln(1 - fpr^(1/h))
//
// and w_b is scaled by that correction before rounding.
func BinSizeBits(elementCount uint64, hashCount int, fpr float64, splitBins int) (uint64, error) {
	if elementCount == 0 {
		return 0, fmt.Errorf("hll: elementCount must be positive")
	}
	if hashCount < 1 {
		return 0, fmt.Errorf("hll: hashCount must be positive")
	}
	if fpr <= 0 || fpr >= 1 {
		return 0, fmt.Errorf("hll: fpr must be in (0,1), got %v", fpr)
	}
	if splitBins < 1 {
		return 0, fmt.Errorf("hll: splitBins must be positive")
	}
	h := float64(hashCount)
	denom := math.Log(1 - math.Exp(math.Log(fpr)/h))
	bitsNeeded := -(float64(elementCount) * h) / denom
	bitsNeeded *= multiBinCorrection(fpr, h, splitBins)
	return uint64(math.Ceil(bitsNeeded)), nil
}

// multiBinCorrection returns the factor by which a single bin's width
// must be scaled up when the user bin it stores is split across p
// consecutive technical bins, so the FPR of the union of those p bins
// (any one firing counts as a hit) still meets fpr. Returns 1 for an
// unsplit bin.
func multiBinCorrection(fpr float64, hashCount float64, p int) float64 {
	if p <= 1 {
		return 1
	}
	combined := 1 - math.Pow(1-fpr, float64(p))
	num := math.Log(1 - math.Pow(combined, 1/hashCount))
	den := math.Log(1 - math.Pow(fpr, 1/hashCount))
	return num / den
}
