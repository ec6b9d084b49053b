package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Condition identifies one of the two generation policies under comparison
type Condition string

const (
	// ConditionTreatment is the structured / skill-augmented prompting policy
	ConditionTreatment Condition = "treatment"

	// ConditionControl is the plain baseline prompting policy
	ConditionControl Condition = "control"
)

// Conditions lists both policies in canonical order
func Conditions() []Condition {
	return []Condition{ConditionTreatment, ConditionControl}
}

// Pair is one input example: the text to review plus the ground-truth
// reference. Built externally; read-only here.
type Pair struct {
	Key       string `json:"key"`
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

// Validate checks the fields a pair must carry to be processable
func (p *Pair) Validate() error {
	if p.Key == "" {
		return &ParseError{Field: "key", Reason: "missing pair key"}
	}
	if p.Text == "" {
		return &ParseError{Field: "text", Reason: "missing pair text"}
	}
	return nil
}

// TruncationStrategy records how pair text was fitted into the prompt budget
type TruncationStrategy string

const (
	TruncationNone     TruncationStrategy = "none"
	TruncationHeadTail TruncationStrategy = "head_tail"
)

// Generation is one produced artifact for a (pair, condition). A failed
// generation keeps its slot in the log with FailureReason set; it never
// counts as done during resume.
type Generation struct {
	PairKey       string             `json:"pair_key"`
	Condition     Condition          `json:"condition"`
	Review        string             `json:"review,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	InputChars    int                `json:"input_chars"`
	Truncation    TruncationStrategy `json:"truncation"`
	Model         string             `json:"model"`
}

// Key returns the resume-reconciliation key
func (g Generation) Key() string { return g.PairKey }

// Succeeded reports whether this record counts as done for resume
func (g Generation) Succeeded() bool { return g.FailureReason == "" }

// Verdict is a judge's raw preference between the two anonymous slots
type Verdict string

const (
	VerdictA   Verdict = "a"
	VerdictB   Verdict = "b"
	VerdictTie Verdict = "tie"
)

// Judgment is one blind pairwise verdict. CondA/CondB record which condition
// occupied each anonymous slot when the judge saw it.
type Judgment struct {
	PairKey   string    `json:"pair_key"`
	CondA     Condition `json:"cond_a"`
	CondB     Condition `json:"cond_b"`
	Verdict   string    `json:"verdict"`
	Rationale string    `json:"rationale,omitempty"`
	Judge     string    `json:"judge"`

	// Unparsed marks verdicts that fell back to "tie" because the judge
	// response could not be parsed, so the analyzer can surface them
	// instead of silently inflating the tie rate.
	Unparsed bool `json:"unparsed,omitempty"`
}

// Key returns the resume-reconciliation key
func (j Judgment) Key() string { return j.PairKey }

// Succeeded reports whether this record counts as done for resume.
// Any persisted judgment counts: a tie-from-parse-failure is still a verdict.
func (j Judgment) Succeeded() bool { return true }

// Checkpoint is the single durable pipeline progress marker, overwritten in
// place at every stage boundary. Owned exclusively by the pipeline runner.
type Checkpoint struct {
	LastCompletedStage int            `json:"last_completed_stage"`
	Status             string         `json:"status"`
	Timestamp          time.Time      `json:"timestamp"`
	Details            map[string]any `json:"details,omitempty"`
}

// UnmarshalCheckpoint validates a checkpoint read back from disk. Unknown
// shapes are a ParseError rather than a silent zero value.
func UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Field: "checkpoint", Reason: err.Error()}
	}
	if _, ok := raw["last_completed_stage"]; !ok {
		return nil, &ParseError{Field: "checkpoint", Reason: "missing last_completed_stage"}
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &ParseError{Field: "checkpoint", Reason: err.Error()}
	}
	if cp.LastCompletedStage < 0 {
		return nil, &ParseError{Field: "checkpoint", Reason: fmt.Sprintf("negative stage %d", cp.LastCompletedStage)}
	}
	return &cp, nil
}
