// Package pipeline drives the fixed evaluation stages with durable
// checkpointing: generate reviews for both conditions, collect blind
// pairwise judgments from one or two judges, then summarize and run the
// statistical tests. Every stage is resumable; interrupting between stages
// loses nothing and interrupting mid-stage loses at most one in-flight
// record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/ppetrov/pairbench/internal/blind"
	"github.com/ppetrov/pairbench/internal/llm"
	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/store"
)

// Stage numbers are part of the control surface (run --from N / --step N)
const (
	StageGenerate       = 1
	StageJudgePrimary   = 2
	StageJudgeSecondary = 3
	StageReport         = 4
	MaxStage            = StageReport
)

// ErrInterrupted is returned by stage bodies when the cooperative
// cancellation flag was observed. The runner treats it as a clean stop, not
// a failure.
var ErrInterrupted = errors.New("interrupted")

// CancelFlag is the cooperative cancellation token. It is checked at stage
// start and at pair-iteration boundaries only; a request already in flight
// completes first so its result is never discarded.
type CancelFlag struct {
	flag atomic.Bool
}

// Cancel requests a stop at the next boundary
func (c *CancelFlag) Cancel() { c.flag.Store(true) }

// Canceled reports whether a stop was requested
func (c *CancelFlag) Canceled() bool { return c.flag.Load() }

// Runner sequences the stages and owns the checkpoint
type Runner struct {
	cfg      *model.Config
	provider llm.Provider
	assigner *blind.Assigner
	prompts  *Prompts
	ckpt     *CheckpointStore
	cancel   *CancelFlag
	logger   *slog.Logger
}

// NewRunner wires a runner. provider may be nil when only the report stage
// will run (offline analysis).
func NewRunner(cfg *model.Config, provider llm.Provider, cancel *CancelFlag, logger *slog.Logger) (*Runner, error) {
	prompts, err := LoadPrompts(cfg.Paths.PromptsDir)
	if err != nil {
		return nil, err
	}
	if cancel == nil {
		cancel = &CancelFlag{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		provider: provider,
		assigner: blind.NewAssigner(cfg.Blind.Seed),
		prompts:  prompts,
		ckpt:     NewCheckpointStore(cfg.CheckpointPath()),
		cancel:   cancel,
		logger:   logger,
	}, nil
}

// RunOptions selects the stage range. OnlyStage wins over FromStage; with
// neither set the runner auto-resumes from the checkpoint.
type RunOptions struct {
	FromStage int
	OnlyStage int
}

type stage struct {
	number int
	name   string
	status string
	run    func(ctx context.Context) (map[string]any, error)
}

func (r *Runner) stages() []stage {
	all := []stage{
		{StageGenerate, "generate reviews", "reviews_generated", r.runGenerate},
		{StageJudgePrimary, "judge (primary)", "judge_primary_complete", func(ctx context.Context) (map[string]any, error) {
			return r.runJudge(ctx, "primary", r.cfg.Judge.PrimaryModel)
		}},
		{StageJudgeSecondary, "judge (secondary)", "judge_secondary_complete", func(ctx context.Context) (map[string]any, error) {
			return r.runJudge(ctx, "secondary", r.cfg.Judge.SecondaryModel)
		}},
		{StageReport, "summarize + statistics", "complete", r.runReport},
	}
	return all
}

// Run executes the selected stage range in order, persisting the checkpoint
// after every stage, on failure, and on interruption. A failure persists the
// checkpoint at the previous stage and is returned; a cooperative
// interruption persists the checkpoint and returns nil.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	if err := r.checkPreconditions(); err != nil {
		return err
	}

	toRun, err := r.selectStages(opts)
	if err != nil {
		return err
	}
	if len(toRun) == 0 {
		r.logger.Info("pipeline already complete; use --from to re-run stages")
		return nil
	}

	for _, st := range toRun {
		if r.cancel.Canceled() {
			return r.saveInterrupted(st.number)
		}

		r.logger.Info("starting stage", "stage", st.number, "name", st.name)
		details, err := st.run(ctx)
		if errors.Is(err, ErrInterrupted) {
			return r.saveInterrupted(st.number)
		}
		if err != nil {
			msg := err.Error()
			if len(msg) > 200 {
				msg = msg[:200]
			}
			if saveErr := r.saveCheckpoint(st.number-1, fmt.Sprintf("error_at_stage_%d: %s", st.number, msg)); saveErr != nil {
				r.logger.Error("checkpoint save failed", "error", saveErr)
			}
			return fmt.Errorf("stage %d (%s): %w", st.number, st.name, err)
		}

		if err := r.saveCheckpointDetails(st.number, st.status, details); err != nil {
			return err
		}
		r.logger.Info("stage complete", "stage", st.number, "name", st.name)
	}

	return nil
}

func (r *Runner) checkPreconditions() error {
	if _, err := os.Stat(r.cfg.Paths.PairsFile); err != nil {
		return &model.PreconditionError{
			What: fmt.Sprintf("pairs file not found: %s", r.cfg.Paths.PairsFile),
		}
	}
	return nil
}

func (r *Runner) selectStages(opts RunOptions) ([]stage, error) {
	all := r.stages()

	switch {
	case opts.OnlyStage != 0:
		if opts.OnlyStage < 1 || opts.OnlyStage > MaxStage {
			return nil, fmt.Errorf("stage %d out of range [1, %d]", opts.OnlyStage, MaxStage)
		}
		return all[opts.OnlyStage-1 : opts.OnlyStage], nil
	case opts.FromStage != 0:
		if opts.FromStage < 1 || opts.FromStage > MaxStage {
			return nil, fmt.Errorf("stage %d out of range [1, %d]", opts.FromStage, MaxStage)
		}
		return all[opts.FromStage-1:], nil
	default:
		cp, err := r.ckpt.Load()
		if err != nil {
			return nil, err
		}
		if cp.LastCompletedStage >= MaxStage {
			return nil, nil
		}
		return all[cp.LastCompletedStage:], nil
	}
}

// saveCheckpoint never moves the recorded progress backwards: re-running an
// earlier stage explicitly keeps last_completed_stage monotonic.
func (r *Runner) saveCheckpoint(stage int, status string) error {
	return r.saveCheckpointDetails(stage, status, nil)
}

func (r *Runner) saveCheckpointDetails(stage int, status string, details map[string]any) error {
	cp, err := r.ckpt.Load()
	if err != nil {
		return err
	}
	if cp.LastCompletedStage > stage {
		stage = cp.LastCompletedStage
	}
	if err := r.ckpt.Save(stage, status, details); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	r.logger.Info("checkpoint saved", "stage", stage, "status", status)
	return nil
}

func (r *Runner) saveInterrupted(stageNumber int) error {
	r.logger.Warn("shutdown requested; stopping", "before_stage", stageNumber)
	return r.saveCheckpoint(stageNumber-1, fmt.Sprintf("interrupted_at_stage_%d", stageNumber))
}

// loadPairs reads the input corpus in file order (the stable processing
// order for every stage) and validates each row
func (r *Runner) loadPairs() ([]model.Pair, error) {
	pairs, err := store.ReadLines[model.Pair](r.cfg.Paths.PairsFile)
	if err != nil {
		return nil, err
	}
	for i := range pairs {
		if err := pairs[i].Validate(); err != nil {
			return nil, fmt.Errorf("pairs file line %d: %w", i+1, err)
		}
	}
	return pairs, nil
}
