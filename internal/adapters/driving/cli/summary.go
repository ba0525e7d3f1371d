package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// summaryKind selects the summary focus.
var summaryKind string

var summaryCmd = &cobra.Command{
	Use:   "summary [doc-id...]",
	Short: "Summarize ingested documents",
	Long: `Generates a summary over whole documents. The --kind flag selects
the focus: general, methodology, results, or conclusion.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryKind, "kind", "k", string(domain.SummaryGeneral),
		"summary focus (general, methodology, results, conclusion)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	text, err := answerService.Summarize(context.Background(), args, domain.SummaryKind(summaryKind))
	if err != nil {
		return fmt.Errorf("summary failed: %w", err)
	}

	cmd.Println(text)
	return nil
}
