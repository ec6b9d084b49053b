package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppetrov/pairbench/internal/model"
	"github.com/ppetrov/pairbench/internal/pipeline"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress from the durable state",
	Long: `Status reads the checkpoint and the on-disk logs and prints what the
pipeline has completed so far. It never contacts the remote API, so it is
safe to run while a pipeline is in progress or right after a crash.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&pairsFile, "pairs", "", "input pairs file (JSONL, one pair per line)")
	statusCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory to inspect")
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	st, err := runner.Status()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Pairbench Status\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Output dir:       %s\n", cfg.Paths.OutputDir)
	fmt.Fprintf(os.Stderr, "  Pairs:            %d\n", st.Pairs)
	fmt.Fprintf(os.Stderr, "  Completed stage:  %d/%d\n", st.Checkpoint.LastCompletedStage, pipeline.MaxStage)
	fmt.Fprintf(os.Stderr, "  Status:           %s\n", st.Checkpoint.Status)
	if !st.Checkpoint.Timestamp.IsZero() {
		fmt.Fprintf(os.Stderr, "  Last update:      %s\n", st.Checkpoint.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(os.Stderr, "\n")

	fmt.Fprintf(os.Stderr, "  Generations:\n")
	for _, cond := range model.Conditions() {
		c := st.Generations[cond]
		fmt.Fprintf(os.Stderr, "    %-10s %d/%d successful (%d records)\n", cond, c.Successful, st.Pairs, c.Records)
	}
	fmt.Fprintf(os.Stderr, "\n")

	fmt.Fprintf(os.Stderr, "  Judgments:\n")
	for _, judge := range []string{"primary", "secondary"} {
		fmt.Fprintf(os.Stderr, "    %-10s %d/%d\n", judge, st.Judgments[judge], st.Pairs)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if st.ReportsDone {
		fmt.Fprintf(os.Stderr, "  Reports:    %s\n", cfg.ReportsDir())
	} else {
		fmt.Fprintf(os.Stderr, "  Reports:    not written yet\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
