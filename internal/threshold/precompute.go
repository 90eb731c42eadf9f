package threshold

import (
	"math"

	"github.com/kshedden/raptor/internal/shape"
)

// precomputeThresholds returns, for every achievable minimiser count
// between minimalMinimisers and maximalMinimisers, the minimum number
// of minimisers that must still match so that a true match (given
// errors substitutions) reaches the threshold with probability at
// least tau, i.e. is missed with probability at most 1 - tau.
func precomputeThresholds(queryLength, windowSize int, sh shape.Shape, errors int, tau float64, minimalMinimisers, maximalMinimisers, kmersPerPattern int) []int {
	logTau := math.Log(tau)
	thresholds := make([]int, 0, maximalMinimisers-minimalMinimisers+1)

	affectedByOneErrorIndirectlyProb := oneIndirectErrorModel(queryLength, windowSize, sh)

	for numberOfMinimisers := minimalMinimisers; numberOfMinimisers <= maximalMinimisers; numberOfMinimisers++ {
		uniformStartIndexProb := math.Log(float64(numberOfMinimisers)) - math.Log(float64(kmersPerPattern))

		affectedByOneErrorProb := oneErrorModel(int(sh.Size), uniformStartIndexProb, affectedByOneErrorIndirectlyProb)
		affectedByEErrorsProb := multipleErrorModel(numberOfMinimisers, errors, affectedByOneErrorProb)

		maxAffected := len(affectedByEErrorsProb) - 1
		for i, p := range affectedByEErrorsProb {
			if p == negativeInf {
				maxAffected = i
				break
			}
		}

		cumulativeProb := affectedByEErrorsProb[0]
		affectedMinimisers := 0
		for cumulativeProb < logTau && affectedMinimisers < maxAffected {
			affectedMinimisers++
			cumulativeProb = logAdd(cumulativeProb, affectedByEErrorsProb[affectedMinimisers])
		}

		thresholds = append(thresholds, numberOfMinimisers-affectedMinimisers)
	}
	return thresholds
}
