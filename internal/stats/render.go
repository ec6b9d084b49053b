package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Markdown renders the narrative statistics report from the structured one
func Markdown(report *Report) string {
	var b strings.Builder
	b.WriteString("# Statistical Significance Tests\n\n")

	for _, judge := range report.Judges {
		fmt.Fprintf(&b, "## %s\n\n", judge.Judge)
		fmt.Fprintf(&b, "- Total examples: %d\n", judge.TotalExamples)
		fmt.Fprintf(&b, "- Treatment wins: %d\n", judge.TreatmentWins)
		fmt.Fprintf(&b, "- Control wins: %d\n", judge.ControlWins)
		fmt.Fprintf(&b, "- Ties: %d\n", judge.Ties)
		if judge.UnparsedVerdicts > 0 {
			fmt.Fprintf(&b, "- Unparsed verdicts (counted as ties): %d\n", judge.UnparsedVerdicts)
		}
		b.WriteString("\n### Win Rate (excluding ties)\n\n")
		fmt.Fprintf(&b, "- Treatment: %.3f\n", judge.TreatmentWinRateNonTie)
		fmt.Fprintf(&b, "- 95%% CI: [%.3f, %.3f]\n", judge.CI95Lower, judge.CI95Upper)
		b.WriteString("\n### Significance\n\n")
		fmt.Fprintf(&b, "- Binomial test p-value: %.6f\n", judge.BinomialPValue)
		fmt.Fprintf(&b, "- Significant at alpha=0.05: %s\n", yesNo(judge.SignificantAt005))
		fmt.Fprintf(&b, "- Cohen's h: %.3f (%s)\n\n", judge.CohensH, judge.EffectSize)
		b.WriteString("---\n\n")
	}

	if report.InterJudge != nil {
		ij := report.InterJudge
		b.WriteString("## Inter-Judge Agreement\n\n")
		fmt.Fprintf(&b, "- Cohen's kappa: %.3f\n", ij.CohensKappa)
		fmt.Fprintf(&b, "- Agreement level: %s\n", ij.AgreementLevel)
		fmt.Fprintf(&b, "- Pairs compared: %d\n", ij.PairsCompared)
	}

	return b.String()
}

// SummaryCSV renders the primary judge's counts as a small CSV table
func SummaryCSV(judge JudgeStats) string {
	var b strings.Builder
	b.WriteString("condition,wins,win_rate_total,win_rate_non_tie\n")
	fmt.Fprintf(&b, "treatment,%d,%g,%g\n", judge.TreatmentWins, judge.TreatmentWinRateTotal, judge.TreatmentWinRateNonTie)
	fmt.Fprintf(&b, "control,%d,%g,%g\n", judge.ControlWins, judge.ControlWinRateTotal, 1-judge.TreatmentWinRateNonTie)
	fmt.Fprintf(&b, "tie,%d,%g,\n", judge.Ties, judge.TieRate)
	return b.String()
}

// WriteReports persists the structured report and its projections:
// statistical_tests.{json,md} always, pairwise_summary.{json,csv} when at
// least one judge is present (based on the first, primary judge).
func WriteReports(report *Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "statistical_tests.json"), data, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}

	md := Markdown(report)
	if err := os.WriteFile(filepath.Join(dir, "statistical_tests.md"), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	if len(report.Judges) > 0 {
		primary := report.Judges[0]
		summary, err := json.MarshalIndent(primary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "pairwise_summary.json"), summary, 0o644); err != nil {
			return fmt.Errorf("write summary json: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "pairwise_summary.csv"), []byte(SummaryCSV(primary)), 0o644); err != nil {
			return fmt.Errorf("write summary csv: %w", err)
		}
	}

	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
