package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/stats"
	"github.com/ppetrov/pairbench/internal/store"
)

// runReport is stage 4: analyze every available judgment log and write the
// statistical reports. Purely offline; reports are recomputed from the logs
// every time and never treated as state.
func (r *Runner) runReport(ctx context.Context) (map[string]any, error) {
	_ = ctx

	report, err := r.Analyze()
	if err != nil {
		return nil, err
	}
	if len(report.Judges) == 0 {
		return nil, &model.PreconditionError{What: "no judgment logs found; run the judge stages first"}
	}

	if err := stats.WriteReports(report, r.cfg.ReportsDir()); err != nil {
		return nil, err
	}
	r.logger.Info("reports written", "dir", r.cfg.ReportsDir(), "judges", len(report.Judges))

	fmt.Fprintln(os.Stdout)
	fmt.Fprint(os.Stdout, stats.Markdown(report))

	details := map[string]any{"judges": len(report.Judges)}
	if report.InterJudge != nil {
		details["cohens_kappa"] = report.InterJudge.CohensKappa
	}
	return details, nil
}

// Analyze loads whichever judgment logs exist and runs the statistical
// analyzer over them
func (r *Runner) Analyze() (*stats.Report, error) {
	var logs []stats.JudgeLog
	for _, judge := range []string{"primary", "secondary"} {
		recs, err := store.NewLog[model.Judgment](r.cfg.JudgmentLog(judge)).Read()
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			continue
		}
		logs = append(logs, stats.JudgeLog{Name: judge, Judgments: recs})
	}
	return stats.Analyze(logs), nil
}
