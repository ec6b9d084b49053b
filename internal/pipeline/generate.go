package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppetrov/pairbench/internal/llm"
	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/store"
)

// forbiddenPhrases mark reviews where the model dodged the task by claiming
// the text was missing; such output is recorded as a failure and retried on
// the next resume
var forbiddenPhrases = []string{
	"only the title",
	"only provided the title",
	"text was not provided",
	"full text was not provided",
	"since you have only provided the title",
	"provided text does not include",
	"cannot review the specific",
	"i cannot review",
	"insufficient information",
	"not provided beyond the title",
}

func looksInvalid(review string) bool {
	low := strings.ToLower(review)
	for _, phrase := range forbiddenPhrases {
		if strings.Contains(low, phrase) {
			return true
		}
	}
	return false
}

// runGenerate is stage 1: produce a review per (pair, condition) for both
// conditions, skipping keys whose latest record already succeeded
func (r *Runner) runGenerate(ctx context.Context) (map[string]any, error) {
	if r.provider == nil {
		return nil, &model.PreconditionError{What: "remote client not configured"}
	}

	pairs, err := r.loadPairs()
	if err != nil {
		return nil, err
	}

	conditions := model.Conditions()
	done := make(map[model.Condition]map[string]struct{}, len(conditions))
	appenders := make(map[model.Condition]*store.Appender[model.Generation], len(conditions))
	logs := make(map[model.Condition]*store.Log[model.Generation], len(conditions))

	for _, cond := range conditions {
		log := store.NewLog[model.Generation](r.cfg.GenerationLog(cond))
		logs[cond] = log
		keys, err := log.SuccessfulKeys()
		if err != nil {
			return nil, err
		}
		done[cond] = keys

		app, err := log.OpenAppender()
		if err != nil {
			return nil, err
		}
		defer func() { _ = app.Close() }()
		appenders[cond] = app
	}

	for _, pair := range pairs {
		if r.cancel.Canceled() {
			return nil, ErrInterrupted
		}

		truncated, strategy := SmartTruncate(pair.Text, r.cfg.Generation.MaxInputChars)

		for _, cond := range conditions {
			if _, ok := done[cond][pair.Key]; ok {
				continue
			}

			rec := model.Generation{
				PairKey:    pair.Key,
				Condition:  cond,
				InputChars: len(truncated),
				Truncation: strategy,
				Model:      r.cfg.Generation.Model,
			}

			review, err := r.generateReview(ctx, cond, truncated)
			if err != nil {
				// Per-record failure: captured, logged, retried on
				// the next resume. The stage keeps going.
				rec.FailureReason = err.Error()
				r.logger.Error("generation failed", "pair", pair.Key, "condition", cond, "error", err)
			} else {
				rec.Review = review
				r.logger.Info("generated review", "pair", pair.Key, "condition", cond, "truncation", strategy)
			}

			if err := appenders[cond].Append(rec); err != nil {
				return nil, fmt.Errorf("append generation: %w", err)
			}
		}
	}

	details := map[string]any{}
	for _, cond := range conditions {
		n, err := logs[cond].CountSuccessful()
		if err != nil {
			return nil, err
		}
		details[string(cond)] = n
	}
	return details, nil
}

func (r *Runner) generateReview(ctx context.Context, cond model.Condition, paperText string) (string, error) {
	prompt := r.prompts.Generation(cond, paperText)
	review, err := r.provider.Generate(ctx, llm.GenerateRequest{
		Model:       r.cfg.Generation.Model,
		Prompt:      prompt,
		Temperature: r.cfg.Generation.Temperature,
		MaxTokens:   r.cfg.Generation.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if looksInvalid(review) {
		return "", &model.InvalidOutputError{
			Reason: "model claimed text was missing or wrote a non-faithful generic review",
		}
	}
	return review, nil
}
