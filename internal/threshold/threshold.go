package threshold

import (
	"fmt"
	"math"

	"github.com/kshedden/raptor/internal/shape"
)

// Kind selects which of the three threshold models Get uses.
type Kind uint8

const (
	KindProbabilistic Kind = iota
	KindLemma
	KindPercentage
)

// Parameters mirrors threshold_parameters: everything needed to
// derive a Threshold, whichever kind ends up selected.
type Parameters struct {
	WindowSize  int
	Shape       shape.Shape
	QueryLength int

	Errors     int
	Percentage float64 // NaN selects a non-percentage kind
	PMax       float64
	FPR        float64
	Tau        float64

	CacheDir string // empty disables disk caching
}

// Threshold gives, for a query with a given total number of
// minimisers, how many of them must match a bin for the query to be
// reported as a hit there.
type Threshold struct {
	kind Kind

	kmerLemma  int
	percentage float64

	minimalMinimisers int
	maximalMinimisers int
	precompThresholds []int
	precompCorrection []int
}

// New derives a Threshold from Parameters, selecting percentage mode
// if Percentage is not NaN, k-mer-lemma mode if the shape has no
// windowing freedom (kmers_per_window == 1), and the full
// probabilistic model otherwise.
func New(p Parameters) (*Threshold, error) {
	kmerSize := int(p.Shape.Size)
	if kmerSize == 0 && math.IsNaN(p.Percentage) {
		return nil, fmt.Errorf("threshold: shape must be initialised")
	}
	kmersPerWindow := p.WindowSize - kmerSize + 1

	t := &Threshold{}

	switch {
	case !math.IsNaN(p.Percentage):
		t.kind = KindPercentage
		t.percentage = p.Percentage

	case kmersPerWindow == 1:
		t.kind = KindLemma
		minuend := p.QueryLength + 1
		subtrahend := (p.Errors + 1) * kmerSize
		if minuend > subtrahend {
			t.kmerLemma = minuend - subtrahend
		} else {
			t.kmerLemma = 1
		}

	default:
		t.kind = KindProbabilistic
		kmersPerPattern := p.QueryLength - kmerSize + 1
		if kmersPerWindow <= 0 || kmersPerPattern <= 0 {
			return nil, fmt.Errorf("threshold: query too short for window size %d and k-mer size %d", p.WindowSize, kmerSize)
		}
		t.minimalMinimisers = kmersPerPattern / kmersPerWindow
		t.maximalMinimisers = p.QueryLength - p.WindowSize + 1
		if t.maximalMinimisers < t.minimalMinimisers {
			return nil, fmt.Errorf("threshold: inconsistent query/window sizing")
		}

		var err error
		t.precompCorrection, t.precompThresholds, err = loadOrCompute(p, t.minimalMinimisers, t.maximalMinimisers, kmersPerPattern)
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

func loadOrCompute(p Parameters, minimalMinimisers, maximalMinimisers, kmersPerPattern int) ([]int, []int, error) {
	if p.CacheDir != "" {
		if correction, thresholds, ok := readCache(p); ok {
			return correction, thresholds, nil
		}
	}

	correction := precomputeCorrection(minimalMinimisers, maximalMinimisers, p.FPR, p.PMax)
	thresholds := precomputeThresholds(p.QueryLength, p.WindowSize, p.Shape, p.Errors, p.Tau, minimalMinimisers, maximalMinimisers, kmersPerPattern)

	if p.CacheDir != "" {
		if err := writeCache(p, correction, thresholds); err != nil {
			return nil, nil, err
		}
	}
	return correction, thresholds, nil
}

// Get returns the minimum number of matching minimisers a query with
// minimiserCount total minimisers needs to count as a hit.
func (t *Threshold) Get(minimiserCount int) int {
	switch t.kind {
	case KindLemma:
		return t.kmerLemma
	case KindPercentage:
		v := int(float64(minimiserCount) * t.percentage)
		if v < 1 {
			v = 1
		}
		return v
	case KindProbabilistic:
		clamped := minimiserCount
		if clamped < t.minimalMinimisers {
			clamped = t.minimalMinimisers
		}
		if clamped > t.maximalMinimisers {
			clamped = t.maximalMinimisers
		}
		index := clamped - t.minimalMinimisers
		v := t.precompThresholds[index] + t.precompCorrection[index]
		if v < 1 {
			v = 1
		}
		return v
	default:
		return 1
	}
}

// Kind reports which model this Threshold was derived with.
func (t *Threshold) Kind() Kind { return t.kind }
