package threshold

import "math"

// pascalRow returns row n of Pascal's triangle in log space:
// result[i] = log(C(n, i)), built from the recurrence
// C(n,i) = C(n,i-1) * (n+1-i)/i so that no intermediate value ever
// leaves log space and overflows for large n.
func pascalRow(n int) []float64 {
	result := make([]float64, n+1)
	for i := 1; i <= n; i++ {
		result[i] = result[i-1] + math.Log(float64(n+1-i)/float64(i))
	}
	return result
}
