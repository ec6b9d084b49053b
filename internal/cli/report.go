package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ppetrov/pairbench/internal/pipeline"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Recompute the statistical reports from the judgment logs",
	Long: `Report runs only the final stage: it reads whatever judgment logs exist,
recomputes the statistics (binomial test, Wilson interval, Cohen's h,
inter-judge kappa) and rewrites the report files. Fully offline; no API
key needed.

Example:
  pairbench report
  pairbench report --output-dir outputs/exp1`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&pairsFile, "pairs", "", "input pairs file (JSONL, one pair per line)")
	reportCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory holding the judgment logs")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pairsFile != "" {
		cfg.Paths.PairsFile = pairsFile
	}
	if outputDir != "" {
		cfg.Paths.OutputDir = outputDir
	}

	runner, err := pipeline.NewRunner(cfg, nil, nil, newLogger())
	if err != nil {
		return err
	}
	return runner.Run(context.Background(), pipeline.RunOptions{OnlyStage: pipeline.StageReport})
}
