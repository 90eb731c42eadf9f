package threshold

import "math"

// precomputeCorrection returns, for every achievable minimiser count
// between minimalMinimisers and maximalMinimisers, the number of
// extra matches to add to the raw probabilistic threshold: one less
// than the smallest false-positive count whose binomial probability
// under the Bloom filter's fpr falls below pMax.
func precomputeCorrection(minimalMinimisers, maximalMinimisers int, fpr, pMax float64) []int {
	logFPR := math.Log(fpr)
	logInvFPR := math.Log(1.0 - fpr)
	logPMax := math.Log(pMax)

	correction := make([]int, 0, maximalMinimisers-minimalMinimisers+1)

	binom := func(binomCoeff []float64, numberOfMinimisers, numberOfFP int) float64 {
		return binomCoeff[numberOfFP] + float64(numberOfFP)*logFPR + float64(numberOfMinimisers-numberOfFP)*logInvFPR
	}

	for n := minimalMinimisers; n <= maximalMinimisers; n++ {
		binomCoeff := pascalRow(n)
		numberOfFP := 1
		for numberOfFP < n && binom(binomCoeff, n, numberOfFP) >= logPMax {
			numberOfFP++
		}
		correction = append(correction, numberOfFP-1)
	}
	return correction
}
