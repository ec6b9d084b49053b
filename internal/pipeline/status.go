package pipeline

import (
	"os"

	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/store"
)

// ConditionCounts reports durable per-condition generation progress
type ConditionCounts struct {
	Records    int `json:"records"`
	Successful int `json:"successful"`
}

// Status is a read-only snapshot: the checkpoint plus live counts from the
// on-disk logs. It reflects durable state only, so it is accurate even
// right after a crash.
type Status struct {
	Checkpoint  *model.Checkpoint                   `json:"checkpoint"`
	Pairs       int                                 `json:"pairs"`
	Generations map[model.Condition]ConditionCounts `json:"generations"`
	Judgments   map[string]int                      `json:"judgments"`
	ReportsDone bool                                `json:"reports_done"`
}

// Status gathers the snapshot without executing any stage
func (r *Runner) Status() (*Status, error) {
	cp, err := r.ckpt.Load()
	if err != nil {
		return nil, err
	}

	st := &Status{
		Checkpoint:  cp,
		Generations: make(map[model.Condition]ConditionCounts, 2),
		Judgments:   make(map[string]int, 2),
	}

	pairs, err := store.ReadLines[model.Pair](r.cfg.Paths.PairsFile)
	if err != nil {
		return nil, err
	}
	st.Pairs = len(pairs)

	for _, cond := range model.Conditions() {
		log := store.NewLog[model.Generation](r.cfg.GenerationLog(cond))
		total, err := log.Count()
		if err != nil {
			return nil, err
		}
		ok, err := log.CountSuccessful()
		if err != nil {
			return nil, err
		}
		st.Generations[cond] = ConditionCounts{Records: total, Successful: ok}
	}

	for _, judge := range []string{"primary", "secondary"} {
		n, err := store.NewLog[model.Judgment](r.cfg.JudgmentLog(judge)).Count()
		if err != nil {
			return nil, err
		}
		st.Judgments[judge] = n
	}

	if entries, err := os.ReadDir(r.cfg.ReportsDir()); err == nil && len(entries) > 0 {
		st.ReportsDone = true
	}

	return st, nil
}
