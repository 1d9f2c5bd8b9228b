package nn

import "math"

// CrossEntropy returns the categorical cross-entropy of logits against the
// class label and its gradient with respect to the logits.
func CrossEntropy(logits []float64, label int) (float64, []float64) {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(l - maxLogit)
	}
	logSumExp := maxLogit + math.Log(sum)

	grad := make([]float64, len(logits))
	for i, l := range logits {
		grad[i] = math.Exp(l - logSumExp)
	}
	grad[label] -= 1
	return logSumExp - logits[label], grad
}

// ArgMax returns the index of the largest value; ties go to the lowest index.
func ArgMax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func logSigmoid(x float64) float64 {
	if x >= 0 {
		return -math.Log1p(math.Exp(-x))
	}
	return x - math.Log1p(math.Exp(x))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
