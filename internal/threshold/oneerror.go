package threshold

// oneErrorModel returns, in log space, the probability that a single
// error affects i minimisers (0 <= i <= windowSize), combining errors
// that land directly inside the winning k-mer (binomial over the k
// positions, each independently affected with probability
// exp(pMean)) with errors that shift a neighbouring window's winner
// indirectly (affectedByOneErrorIndirectlyProb, from the Monte Carlo
// model).
func oneErrorModel(kmerSize int, pMean float64, affectedByOneErrorIndirectlyProb []float64) []float64 {
	windowSize := len(affectedByOneErrorIndirectlyProb) - 1
	coefficients := pascalRow(kmerSize)
	probabilities := make([]float64, windowSize+1)
	for i := range probabilities {
		probabilities[i] = negativeInf
	}
	invPMean := logSubtract(0, pMean)

	for i := 0; i <= kmerSize; i++ {
		pDirect := coefficients[i] + float64(i)*pMean + float64(kmerSize-i)*invPMean
		for j := 0; i+j <= windowSize; j++ {
			probabilities[i+j] = logAdd(probabilities[i+j], pDirect+affectedByOneErrorIndirectlyProb[j])
		}
	}

	sum := logAddAll(probabilities...)
	for i := range probabilities {
		probabilities[i] -= sum
	}
	return probabilities
}
