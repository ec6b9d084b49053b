package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppetrov/pairbench/internal/blind"
	"github.com/ppetrov/pairbench/internal/llm"
	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/store"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		winner  string
		wantErr bool
	}{
		{"clean json", `{"winner": "A", "reasoning": "sharper"}`, "A", false},
		{"prose around json", "Sure! Here is my verdict:\n{\"winner\": \"tie\", \"reasoning\": \"both fine\"}\nHope this helps.", "tie", false},
		{"braces inside strings", `{"winner": "B", "reasoning": "used {brackets} correctly"}`, "B", false},
		{"no json at all", "Review A is better.", "", true},
		{"unbalanced braces", `{"winner": "A"`, "", true},
		{"missing winner", `{"reasoning": "hard to say"}`, "", true},
		{"invalid json body", `{winner: A}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.in)
			if tt.wantErr {
				var perr *model.ParseError
				require.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.winner, v.Winner)
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSONObject(`before {"a": 1} after`))
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSONObject(`{"a": {"b": 2}} trailing`))
	assert.Equal(t, `{"s": "has } brace"}`, extractJSONObject(`{"s": "has } brace"}`))
	assert.Equal(t, `{"s": "esc \" quote}"}`, extractJSONObject(`{"s": "esc \" quote}"}`))
	assert.Empty(t, extractJSONObject("no object here"))
	assert.Empty(t, extractJSONObject(`{"open": 1`))
}

func TestJudgeStage_BlindAssignmentOrdersPrompt(t *testing.T) {
	cfg := testConfig(t, 4)
	provider := &fakeProvider{respond: defaultRespond}
	r := newTestRunner(t, cfg, provider, nil)

	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageGenerate}))
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageJudgePrimary}))

	recs, err := store.NewLog[model.Judgment](cfg.JudgmentLog("primary")).Read()
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assigner := blind.NewAssigner(cfg.Blind.Seed)
	prompts := make(map[string]string)
	provider.mu.Lock()
	for _, c := range provider.calls {
		if c.Model != testPrimaryModel {
			continue
		}
		for i := 1; i <= 4; i++ {
			if strings.Contains(c.Prompt, fmt.Sprintf("text-p%d", i)) {
				prompts[fmt.Sprintf("p%d", i)] = c.Prompt
			}
		}
	}
	provider.mu.Unlock()

	for _, rec := range recs {
		asn := assigner.Assign(rec.PairKey)
		assert.Equal(t, asn.SlotA, rec.CondA, "pair %s", rec.PairKey)
		assert.Equal(t, asn.SlotB, rec.CondB, "pair %s", rec.PairKey)

		prompt := prompts[rec.PairKey]
		require.NotEmpty(t, prompt, "pair %s", rec.PairKey)
		wantA := "CONTROL-REVIEW"
		wantB := "TREATMENT-REVIEW"
		if asn.SlotA == model.ConditionTreatment {
			wantA, wantB = wantB, wantA
		}
		assert.Contains(t, prompt, "A="+wantA, "pair %s", rec.PairKey)
		assert.Contains(t, prompt, "B="+wantB, "pair %s", rec.PairKey)
	}
}

func TestJudgeStage_ProviderErrorBecomesTie(t *testing.T) {
	cfg := testConfig(t, 1)
	provider := &fakeProvider{respond: func(req llm.GenerateRequest) (string, error) {
		if req.Model == testPrimaryModel {
			return "", &llm.ServiceError{StatusCode: 503, Message: "unavailable"}
		}
		return defaultRespond(req)
	}}
	r := newTestRunner(t, cfg, provider, nil)

	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageGenerate}))
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageJudgePrimary}))

	recs, err := store.NewLog[model.Judgment](cfg.JudgmentLog("primary")).Read()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, string(model.VerdictTie), recs[0].Verdict)
	assert.True(t, recs[0].Unparsed)
	assert.Contains(t, recs[0].Rationale, "ERROR:")
}

func TestJudgeStage_GarbageVerdictBecomesTie(t *testing.T) {
	cfg := testConfig(t, 1)
	provider := &fakeProvider{respond: func(req llm.GenerateRequest) (string, error) {
		if req.Model == testPrimaryModel {
			return "The first review seemed more thorough overall.", nil
		}
		return defaultRespond(req)
	}}
	r := newTestRunner(t, cfg, provider, nil)

	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageGenerate}))
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageJudgePrimary}))

	recs, err := store.NewLog[model.Judgment](cfg.JudgmentLog("primary")).Read()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, string(model.VerdictTie), recs[0].Verdict)
	assert.True(t, recs[0].Unparsed)
}

func TestJudgeStage_SkipsPairsMissingAReview(t *testing.T) {
	cfg := testConfig(t, 2)
	provider := &fakeProvider{respond: func(req llm.GenerateRequest) (string, error) {
		if req.Model == testGenModel && strings.HasPrefix(req.Prompt, "C:") && strings.Contains(req.Prompt, "text-p2") {
			return "", &llm.ServiceError{StatusCode: 500, Message: "boom"}
		}
		return defaultRespond(req)
	}}
	r := newTestRunner(t, cfg, provider, nil)

	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageGenerate}))
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageJudgePrimary}))

	recs, err := store.NewLog[model.Judgment](cfg.JudgmentLog("primary")).Read()
	require.NoError(t, err)
	require.Len(t, recs, 1, "pair without both reviews must not be judged")
	assert.Equal(t, "p1", recs[0].PairKey)

	// Generation recovers on resume; the skipped pair is judged next pass
	provider.respond = defaultRespond
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageGenerate}))
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageJudgePrimary}))

	recs, err = store.NewLog[model.Judgment](cfg.JudgmentLog("primary")).Read()
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestJudgeStage_VerdictNormalized(t *testing.T) {
	cfg := testConfig(t, 1)
	provider := &fakeProvider{respond: func(req llm.GenerateRequest) (string, error) {
		if req.Model == testPrimaryModel {
			return `{"winner": "  B  ", "reasoning": "clearer"}`, nil
		}
		return defaultRespond(req)
	}}
	r := newTestRunner(t, cfg, provider, nil)

	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageGenerate}))
	require.NoError(t, r.Run(context.Background(), RunOptions{OnlyStage: StageJudgePrimary}))

	recs, err := store.NewLog[model.Judgment](cfg.JudgmentLog("primary")).Read()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].Verdict)
	assert.False(t, recs[0].Unparsed)
}
