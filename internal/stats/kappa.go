package stats

// CohensKappa measures inter-judge agreement beyond chance for two outcome
// lists covering the same pairs in the same order. Chance agreement comes
// from each label's marginal frequency in each list; the degenerate case
// where chance agreement is already 1 returns kappa = 1.
func CohensKappa(first, second []Outcome) float64 {
	n := len(first)
	if n == 0 || n != len(second) {
		return 0.0
	}

	labels := map[Outcome]struct{}{}
	for _, o := range first {
		labels[o] = struct{}{}
	}
	for _, o := range second {
		labels[o] = struct{}{}
	}

	agree := 0
	for i := range first {
		if first[i] == second[i] {
			agree++
		}
	}
	pObserved := float64(agree) / float64(n)

	pExpected := 0.0
	for label := range labels {
		f1, f2 := 0, 0
		for i := range first {
			if first[i] == label {
				f1++
			}
			if second[i] == label {
				f2++
			}
		}
		pExpected += (float64(f1) / float64(n)) * (float64(f2) / float64(n))
	}

	if pExpected >= 1.0 {
		return 1.0
	}
	return (pObserved - pExpected) / (1.0 - pExpected)
}

// KappaLabel maps kappa to the Landis-Koch ordinal bands
func KappaLabel(k float64) string {
	switch {
	case k < 0.0:
		return "poor"
	case k < 0.20:
		return "slight"
	case k < 0.40:
		return "fair"
	case k < 0.60:
		return "moderate"
	case k < 0.80:
		return "substantial"
	default:
		return "almost_perfect"
	}
}
