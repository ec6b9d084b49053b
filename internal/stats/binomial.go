// Package stats turns raw judgment logs into significance conclusions: exact
// binomial test, Wilson interval, Cohen's h effect size and Cohen's kappa
// inter-judge agreement. Everything is computed from scratch; sample sizes
// here are tens to low hundreds, where normal approximations are unreliable.
package stats

import "math"

// logComb returns the log of the binomial coefficient C(n, k)
func logComb(n, k int) float64 {
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}

// binomialCDF computes P(X <= k) for X ~ Binomial(n, p) exactly, summing
// exp(log-pmf) terms to stay stable for the n and p used here
func binomialCDF(k, n int, p float64) float64 {
	if k < 0 {
		return 0.0
	}
	if k >= n {
		return 1.0
	}

	total := 0.0
	for i := 0; i <= k; i++ {
		logProb := logComb(n, i) + float64(i)*math.Log(p) + float64(n-i)*math.Log(1-p)
		total += math.Exp(logProb)
	}
	return math.Min(total, 1.0)
}

// BinomialTestTwoSided returns the two-sided exact p-value for observing
// `successes` out of `trials` under H0: true proportion = p0.
// p = min(1, 2*min(P(X <= k), P(X >= k))).
func BinomialTestTwoSided(successes, trials int, p0 float64) float64 {
	if trials == 0 {
		return 1.0
	}

	pUpper := 1.0 - binomialCDF(successes-1, trials, p0)
	pLower := binomialCDF(successes, trials, p0)

	return math.Min(2.0*math.Min(pUpper, pLower), 1.0)
}
