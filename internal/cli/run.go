package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppetrov/pairbench/internal/llm"
	"github.com/ppetrov/pairbench/internal/pipeline"
)

var (
	fromStage      int
	onlyStage      int
	pairsFile      string
	outputDir      string
	promptsDir     string
	genModel       string
	judgeModel     string
	secondaryModel string
	blindSeed      int64
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the evaluation pipeline (resumes from the checkpoint)",
	Long: `Run executes the four pipeline stages in order:
  1. generate reviews for both conditions
  2. collect blind judgments from the primary judge
  3. collect blind judgments from the secondary judge (optional)
  4. summarize results and run the statistical tests

Without flags the run resumes from the last checkpoint. Use --from N to
force re-running from a stage, or --step N to run a single stage.

Requires OPENROUTER_API_KEY in the environment for stages 1-3.

Example:
  pairbench run
  pairbench run --from 2
  pairbench run --step 4
  pairbench run --pairs data/pairs.jsonl --output-dir outputs/exp1`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Stage selection
	runCmd.Flags().IntVar(&fromStage, "from", 0, "re-run from this stage (1-4)")
	runCmd.Flags().IntVar(&onlyStage, "step", 0, "run exactly this stage (1-4)")

	// Config overrides
	runCmd.Flags().StringVar(&pairsFile, "pairs", "", "input pairs file (JSONL, one pair per line)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for logs, checkpoint and reports")
	runCmd.Flags().StringVar(&promptsDir, "prompts", "", "directory with prompt template overrides")
	runCmd.Flags().StringVar(&genModel, "gen-model", "", "model that writes the reviews")
	runCmd.Flags().StringVar(&judgeModel, "judge-model", "", "primary judge model")
	runCmd.Flags().StringVar(&secondaryModel, "secondary-judge-model", "", "secondary judge model (empty disables stage 3)")
	runCmd.Flags().Int64Var(&blindSeed, "seed", 0, "blind assignment seed")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flag overrides beat config file and defaults
	if pairsFile != "" {
		cfg.Paths.PairsFile = pairsFile
	}
	if outputDir != "" {
		cfg.Paths.OutputDir = outputDir
	}
	if promptsDir != "" {
		cfg.Paths.PromptsDir = promptsDir
	}
	if genModel != "" {
		cfg.Generation.Model = genModel
	}
	if judgeModel != "" {
		cfg.Judge.PrimaryModel = judgeModel
	}
	if cmd.Flags().Changed("secondary-judge-model") {
		cfg.Judge.SecondaryModel = secondaryModel
	}
	if cmd.Flags().Changed("seed") {
		cfg.Blind.Seed = blindSeed
	}

	logger := newLogger()

	// The report stage is offline; everything else needs the remote client
	var provider llm.Provider
	if onlyStage != pipeline.StageReport {
		client, err := llm.NewClient(cfg.Remote)
		if err != nil {
			return err
		}
		provider = client
	}

	// First Ctrl-C requests a cooperative stop: the in-flight record
	// finishes, the checkpoint is saved, the process exits cleanly.
	// A second Ctrl-C kills the process.
	cancel := &pipeline.CancelFlag{}
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		logger.Warn("shutdown requested; finishing in-flight work (Ctrl-C again to force)")
		cancel.Cancel()
		<-sigs
		os.Exit(130)
	}()

	runner, err := pipeline.NewRunner(cfg, provider, cancel, logger)
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{FromStage: fromStage, OnlyStage: onlyStage}
	if err := runner.Run(context.Background(), opts); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if cancel.Canceled() {
		fmt.Fprintln(os.Stderr, "Interrupted; progress saved. Run again to resume.")
	}
	return nil
}
