package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check embedding and LLM provider connectivity",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	stats, err := ingestService.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Indexed chunks: %d\n", stats.TotalChunks)
	if len(stats.DocumentChunks) == 0 {
		return nil
	}

	cmd.Println("\nPer document:")
	for docID, count := range stats.DocumentChunks {
		cmd.Printf("  %s: %d\n", docID, count)
	}
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	if err := answerService.Health(context.Background()); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	cmd.Println("All providers reachable.")
	return nil
}
