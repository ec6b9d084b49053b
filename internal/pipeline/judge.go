package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppetrov/pairbench/internal/llm"
	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/store"
)

// judgeVerdict is the JSON body a judge is asked to produce
type judgeVerdict struct {
	Winner    string `json:"winner"`
	Reasoning string `json:"reasoning"`
}

// runJudge is the body of stages 2 and 3; the stages differ only in judge
// slot name and model. An empty model disables the stage (single-judge
// setups skip the secondary pass).
func (r *Runner) runJudge(ctx context.Context, judgeName, judgeModel string) (map[string]any, error) {
	if judgeModel == "" {
		r.logger.Info("judge not configured; skipping", "judge", judgeName)
		return map[string]any{"skipped": true}, nil
	}
	if r.provider == nil {
		return nil, &model.PreconditionError{What: "remote client not configured"}
	}

	pairs, err := r.loadPairs()
	if err != nil {
		return nil, err
	}

	reviews := make(map[model.Condition]map[string]string, 2)
	for _, cond := range model.Conditions() {
		byKey, err := latestSuccessfulReviews(r.cfg.GenerationLog(cond))
		if err != nil {
			return nil, err
		}
		reviews[cond] = byKey
	}

	log := store.NewLog[model.Judgment](r.cfg.JudgmentLog(judgeName))
	done, err := log.SuccessfulKeys()
	if err != nil {
		return nil, err
	}
	app, err := log.OpenAppender()
	if err != nil {
		return nil, err
	}
	defer func() { _ = app.Close() }()

	for _, pair := range pairs {
		if r.cancel.Canceled() {
			return nil, ErrInterrupted
		}
		if _, ok := done[pair.Key]; ok {
			continue
		}

		treatment, okT := reviews[model.ConditionTreatment][pair.Key]
		control, okC := reviews[model.ConditionControl][pair.Key]
		if !okT || !okC {
			// Both conditions must have a successful review before the
			// pair is judgeable; resume picks it up once generation
			// catches up.
			continue
		}

		asn := r.assigner.Assign(pair.Key)
		bySlot := map[model.Condition]string{
			model.ConditionTreatment: treatment,
			model.ConditionControl:   control,
		}

		prompt := r.prompts.Judge(
			TruncateHead(pair.Text, r.cfg.Judge.MaxPairChars),
			TruncateHead(pair.Reference, r.cfg.Judge.MaxReferenceChars),
			bySlot[asn.SlotA],
			bySlot[asn.SlotB],
		)

		rec := model.Judgment{
			PairKey: pair.Key,
			CondA:   asn.SlotA,
			CondB:   asn.SlotB,
			Judge:   judgeName,
		}

		out, err := r.provider.Generate(ctx, llm.GenerateRequest{
			Model:       judgeModel,
			Prompt:      prompt,
			Temperature: r.cfg.Judge.Temperature,
			MaxTokens:   r.cfg.Judge.MaxTokens,
		})
		if err != nil {
			// Conservative degradation: a failed judge call becomes a
			// tie verdict, flagged so the analyzer can count it.
			rec.Verdict = string(model.VerdictTie)
			rec.Rationale = "ERROR: " + err.Error()
			rec.Unparsed = true
			r.logger.Error("judge call failed", "pair", pair.Key, "judge", judgeName, "error", err)
		} else if verdict, perr := parseVerdict(out); perr != nil {
			rec.Verdict = string(model.VerdictTie)
			rec.Rationale = "ERROR: " + perr.Error()
			rec.Unparsed = true
			r.logger.Warn("unparseable judge verdict", "pair", pair.Key, "judge", judgeName, "error", perr)
		} else {
			rec.Verdict = strings.ToLower(strings.TrimSpace(verdict.Winner))
			rec.Rationale = verdict.Reasoning
			r.logger.Info("judged pair", "pair", pair.Key, "judge", judgeName,
				"slot_a", asn.SlotA, "slot_b", asn.SlotB, "verdict", rec.Verdict)
		}

		if err := app.Append(rec); err != nil {
			return nil, fmt.Errorf("append judgment: %w", err)
		}
	}

	n, err := log.Count()
	if err != nil {
		return nil, err
	}
	return map[string]any{"judgments": n}, nil
}

// latestSuccessfulReviews maps pair key to review text, last write wins
func latestSuccessfulReviews(path string) (map[string]string, error) {
	recs, err := store.NewLog[model.Generation](path).Read()
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]string, len(recs))
	for _, rec := range recs {
		if rec.Succeeded() {
			byKey[rec.PairKey] = rec.Review
		} else {
			delete(byKey, rec.PairKey)
		}
	}
	return byKey, nil
}

// parseVerdict decodes the judge's JSON body, tolerating surrounding prose
// by extracting the first balanced JSON object
func parseVerdict(out string) (*judgeVerdict, error) {
	body := extractJSONObject(out)
	if body == "" {
		return nil, &model.ParseError{Field: "verdict", Reason: "no JSON object in judge response"}
	}
	var v judgeVerdict
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, &model.ParseError{Field: "verdict", Reason: err.Error()}
	}
	if v.Winner == "" {
		return nil, &model.ParseError{Field: "verdict", Reason: "missing winner"}
	}
	return &v, nil
}

// extractJSONObject returns the first balanced {...} block, "" if none.
// Braces inside JSON strings are skipped.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
