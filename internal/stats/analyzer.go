package stats

import (
	"sort"
	"strings"

	"github.com/ppetrov/pairbench/internal/model"
)

// Outcome is a judgment resolved against its blind slot assignment
type Outcome string

const (
	OutcomeTreatmentWin Outcome = "treatment_win"
	OutcomeControlWin   Outcome = "control_win"
	OutcomeTie          Outcome = "tie"
)

// ResolveOutcome maps a raw verdict back through the recorded slot
// assignment. Anything that is not exactly "a", "b" or "tie" resolves to a
// tie (conservative: no preference) but is reported as unparsed so the tie
// rate inflation stays visible.
func ResolveOutcome(j model.Judgment) (Outcome, bool) {
	verdict := strings.ToLower(strings.TrimSpace(j.Verdict))

	var winner model.Condition
	switch verdict {
	case "a":
		winner = j.CondA
	case "b":
		winner = j.CondB
	case "tie":
		return OutcomeTie, j.Unparsed
	default:
		return OutcomeTie, true
	}

	if winner == model.ConditionTreatment {
		return OutcomeTreatmentWin, j.Unparsed
	}
	return OutcomeControlWin, j.Unparsed
}

// JudgeStats holds every computed value for one judge's log
type JudgeStats struct {
	Judge         string `json:"judge"`
	TotalExamples int    `json:"total_examples"`

	TreatmentWins    int `json:"treatment_wins"`
	ControlWins      int `json:"control_wins"`
	Ties             int `json:"ties"`
	UnparsedVerdicts int `json:"unparsed_verdicts"`

	TreatmentWinRateTotal  float64 `json:"treatment_win_rate_total"`
	ControlWinRateTotal    float64 `json:"control_win_rate_total"`
	TieRate                float64 `json:"tie_rate"`
	TreatmentWinRateNonTie float64 `json:"treatment_win_rate_non_tie"`

	BinomialPValue   float64 `json:"binomial_p_value"`
	SignificantAt005 bool    `json:"significant_at_005"`
	CI95Lower        float64 `json:"ci_95_lower"`
	CI95Upper        float64 `json:"ci_95_upper"`
	CohensH          float64 `json:"cohens_h"`
	EffectSize       string  `json:"effect_size"`
}

// InterJudgeStats holds cross-judge agreement values
type InterJudgeStats struct {
	CohensKappa    float64 `json:"cohens_kappa"`
	AgreementLevel string  `json:"agreement_level"`
	PairsCompared  int     `json:"pairs_compared"`
}

// Report is the structured analysis output. The narrative renderings are
// pure projections of this struct, never computed independently.
type Report struct {
	Judges     []JudgeStats     `json:"judges"`
	InterJudge *InterJudgeStats `json:"inter_judge,omitempty"`
}

// JudgeLog pairs a judge name with its raw judgment records
type JudgeLog struct {
	Name      string
	Judgments []model.Judgment
}

// AnalyzeJudge computes the full per-judge statistics for one outcome list.
// Ties are excluded from the significance denominator.
func AnalyzeJudge(name string, outcomes []Outcome, unparsed int) JudgeStats {
	total := len(outcomes)
	var treatmentWins, controlWins, ties int
	for _, o := range outcomes {
		switch o {
		case OutcomeTreatmentWin:
			treatmentWins++
		case OutcomeControlWin:
			controlWins++
		default:
			ties++
		}
	}
	nonTie := treatmentWins + controlWins

	st := JudgeStats{
		Judge:                  name,
		TotalExamples:          total,
		TreatmentWins:          treatmentWins,
		ControlWins:            controlWins,
		Ties:                   ties,
		UnparsedVerdicts:       unparsed,
		BinomialPValue:         1.0,
		CI95Lower:              0.0,
		CI95Upper:              1.0,
		TreatmentWinRateNonTie: 0.5,
	}
	if total > 0 {
		st.TreatmentWinRateTotal = float64(treatmentWins) / float64(total)
		st.ControlWinRateTotal = float64(controlWins) / float64(total)
		st.TieRate = float64(ties) / float64(total)
	}
	if nonTie > 0 {
		st.TreatmentWinRateNonTie = float64(treatmentWins) / float64(nonTie)
		st.BinomialPValue = BinomialTestTwoSided(treatmentWins, nonTie, 0.5)
		st.CI95Lower, st.CI95Upper = WilsonInterval(treatmentWins, nonTie, 1.96)
		st.CohensH = CohensH(st.TreatmentWinRateNonTie, 0.5)
	}
	st.SignificantAt005 = nonTie > 0 && st.BinomialPValue < 0.05
	st.EffectSize = EffectSizeLabel(st.CohensH)
	return st
}

// Analyze runs per-judge statistics over every provided log and, when at
// least two logs are present, inter-judge agreement over the pairs they
// share (aligned by sorted pair key so both lists follow the same order).
func Analyze(logs []JudgeLog) *Report {
	report := &Report{}

	outcomesByKey := make([]map[string]Outcome, len(logs))
	for i, log := range logs {
		byKey := make(map[string]Outcome, len(log.Judgments))
		outcomes := make([]Outcome, 0, len(log.Judgments))
		unparsed := 0
		for _, j := range log.Judgments {
			outcome, bad := ResolveOutcome(j)
			if bad {
				unparsed++
			}
			outcomes = append(outcomes, outcome)
			byKey[j.PairKey] = outcome
		}
		outcomesByKey[i] = byKey
		report.Judges = append(report.Judges, AnalyzeJudge(log.Name, outcomes, unparsed))
	}

	if len(logs) >= 2 {
		first, second := alignOutcomes(outcomesByKey[0], outcomesByKey[1])
		if len(first) > 0 {
			kappa := CohensKappa(first, second)
			report.InterJudge = &InterJudgeStats{
				CohensKappa:    kappa,
				AgreementLevel: KappaLabel(kappa),
				PairsCompared:  len(first),
			}
		}
	}

	return report
}

// alignOutcomes builds two outcome lists over the shared pair keys in sorted
// key order
func alignOutcomes(a, b map[string]Outcome) ([]Outcome, []Outcome) {
	var shared []string
	for key := range a {
		if _, ok := b[key]; ok {
			shared = append(shared, key)
		}
	}
	sort.Strings(shared)

	first := make([]Outcome, len(shared))
	second := make([]Outcome, len(shared))
	for i, key := range shared {
		first[i] = a[key]
		second[i] = b[key]
	}
	return first, second
}
