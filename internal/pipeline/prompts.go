package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppetrov/pairbench/internal/model"
)

// Built-in templates. Files in the configured prompts directory override
// them (treatment.txt, control.txt, skill.md, judge.txt); template content
// itself is deliberately external to the pipeline.
const (
	defaultTreatmentTemplate = `You are an expert peer reviewer. Follow the review methodology below exactly.

{skill}

Review the following paper. Base every statement on the provided text.

PAPER:
{paper_text}

Write the full review now.`

	defaultControlTemplate = `You are a reviewer. Read the following paper and write a review covering its strengths, weaknesses, and your overall assessment.

PAPER:
{paper_text}

Write the review now.`

	defaultSkillText = `- Summarize the contribution in your own words before judging it.
- Assess novelty against the closest prior work the paper cites.
- Check that every experimental claim has a matching result.
- Separate major issues (affect the conclusion) from minor ones (presentation).
- End with a clear accept/reject leaning and the reasons that drive it.`

	defaultJudgeTemplate = `You are comparing two anonymous reviews of the same paper. Judge which review is more accurate, specific and useful, using the paper and the reference review as ground truth.

PAPER:
{paper_text}

REFERENCE REVIEW (ground truth):
{ground_truth}

REVIEW A:
{review_a}

REVIEW B:
{review_b}

Respond with a single JSON object and nothing else:
{"winner": "A" | "B" | "tie", "reasoning": "<one short paragraph>"}`
)

// Prompts holds the resolved template set for a run
type Prompts struct {
	treatment string
	control   string
	skill     string
	judge     string
}

// LoadPrompts resolves templates from the prompts directory, falling back to
// the built-in defaults for any missing file
func LoadPrompts(dir string) (*Prompts, error) {
	p := &Prompts{
		treatment: defaultTreatmentTemplate,
		control:   defaultControlTemplate,
		skill:     defaultSkillText,
		judge:     defaultJudgeTemplate,
	}
	if dir == "" {
		return p, nil
	}

	for _, tpl := range []struct {
		name string
		dst  *string
	}{
		{"treatment.txt", &p.treatment},
		{"control.txt", &p.control},
		{"skill.md", &p.skill},
		{"judge.txt", &p.judge},
	} {
		data, err := os.ReadFile(filepath.Join(dir, tpl.name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read prompt %s: %w", tpl.name, err)
		}
		*tpl.dst = string(data)
	}
	return p, nil
}

// Generation renders the generation prompt for a condition
func (p *Prompts) Generation(condition model.Condition, paperText string) string {
	switch condition {
	case model.ConditionTreatment:
		out := strings.ReplaceAll(p.treatment, "{skill}", p.skill)
		return strings.ReplaceAll(out, "{paper_text}", paperText)
	default:
		return strings.ReplaceAll(p.control, "{paper_text}", paperText)
	}
}

// Judge renders the blind pairwise judging prompt
func (p *Prompts) Judge(paperText, groundTruth, reviewA, reviewB string) string {
	out := strings.ReplaceAll(p.judge, "{paper_text}", paperText)
	out = strings.ReplaceAll(out, "{ground_truth}", groundTruth)
	out = strings.ReplaceAll(out, "{review_a}", reviewA)
	return strings.ReplaceAll(out, "{review_b}", reviewB)
}
