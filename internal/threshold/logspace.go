// Package threshold implements the C10 threshold engine: the number
// of matching minimisers a query must show against a user bin before
// it counts as a hit, in percentage, k-mer-lemma, and probabilistic
// error-aware modes.
package threshold

import "math"

const ln2 = 0.693147180559945

// negativeInf represents log(0), the identity element for logAdd.
var negativeInf = math.Inf(-1)

// logAdd returns log(exp(logX) + exp(logY)) without leaving log
// space, stable even when one argument is negativeInf.
func logAdd(logX, logY float64) float64 {
	max := logX
	if logY > max {
		max = logY
	}
	if max == negativeInf {
		return negativeInf
	}
	return max + math.Log1p(math.Exp(-math.Abs(logX-logY)))
}

// logAddAll folds logAdd over every value, starting from negativeInf.
func logAddAll(values ...float64) float64 {
	sum := negativeInf
	for _, v := range values {
		sum = logAdd(sum, v)
	}
	return sum
}

// logSubtract returns log(exp(logX) - exp(logY)), logX >= logY.
// Uses expm1/log1p for accuracy when the difference is small, the
// same split raptor::logspace::substract makes.
func logSubtract(logX, logY float64) float64 {
	difference := logY - logX
	if difference > -ln2 {
		return logX + math.Log(-math.Expm1(difference))
	}
	return logX + math.Log1p(-math.Exp(difference))
}
