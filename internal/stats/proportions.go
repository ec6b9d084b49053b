package stats

import "math"

// WilsonInterval returns the Wilson score confidence interval for a
// proportion. Unlike the Wald interval it stays inside [0,1] and behaves at
// proportion extremes, which happen routinely with small samples.
// z=1.96 gives a 95% interval.
func WilsonInterval(successes, trials int, z float64) (float64, float64) {
	if trials == 0 {
		return 0.0, 1.0
	}

	n := float64(trials)
	pHat := float64(successes) / n
	denom := 1 + z*z/n
	center := (pHat + z*z/(2*n)) / denom
	spread := z * math.Sqrt((pHat*(1-pHat)+z*z/(4*n))/n) / denom

	return math.Max(0.0, center-spread), math.Min(1.0, center+spread)
}

// CohensH returns the effect size between two proportions:
// h = 2*arcsin(sqrt(p1)) - 2*arcsin(sqrt(p2))
func CohensH(p1, p2 float64) float64 {
	return 2*math.Asin(math.Sqrt(p1)) - 2*math.Asin(math.Sqrt(p2))
}

// EffectSizeLabel classifies |h| with the conventional thresholds
func EffectSizeLabel(h float64) string {
	absH := math.Abs(h)
	switch {
	case absH < 0.2:
		return "negligible"
	case absH < 0.5:
		return "small"
	case absH < 0.8:
		return "medium"
	default:
		return "large"
	}
}
