package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/domain"
)

// ingestWait blocks until vectorization finishes.
var ingestWait bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest PDF documents",
	Long: `Registers one or more PDFs and vectorizes them in the background.
Use --wait to block until processing finishes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var reingestCmd = &cobra.Command{
	Use:   "reingest [doc-id]",
	Short: "Re-process an ingested document",
	Long: `Deletes a document's index entries and runs the full pipeline again
from the stored upload. Useful after changing chunking settings.`,
	Args: cobra.ExactArgs(1),
	RunE: runReingest,
}

var updateCmd = &cobra.Command{
	Use:   "update [doc-id] [key=value...]",
	Short: "Update document metadata",
	Long: `Merges key=value pairs into the document's metadata and propagates
them to its index entries. The title and author keys also update the
document record itself.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpdate,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "wait for vectorization to finish")
	reingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "wait for vectorization to finish")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reingestCmd)
	rootCmd.AddCommand(updateCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := context.Background()
	ids := make([]string, 0, len(args))

	for _, path := range args {
		doc, err := ingestOne(ctx, path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		cmd.Printf("Queued %s as %s\n", doc.Filename, doc.ID)
		ids = append(ids, doc.ID)
	}

	if !ingestWait {
		cmd.Printf("\nProcessing in background. Check progress with: ragdoc status <doc-id>\n")
		return nil
	}

	ingestService.Wait()
	for _, id := range ids {
		status, err := ingestService.Status(ctx, id)
		if err != nil {
			return fmt.Errorf("status of %s: %w", id, err)
		}
		cmd.Printf("%s: %s\n", id, status)
	}
	return nil
}

func ingestOne(ctx context.Context, path string) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return ingestService.Ingest(ctx, info.Name(), f, info.Size())
}

func runReingest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	if err := ingestService.Reingest(ctx, docID); err != nil {
		return fmt.Errorf("reingest: %w", err)
	}

	cmd.Printf("Re-queued %s for processing.\n", docID)

	if !ingestWait {
		return nil
	}
	ingestService.Wait()

	status, err := ingestService.Status(ctx, docID)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	cmd.Printf("%s: %s\n", docID, status)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	docID := args[0]
	metadata := make(map[string]any, len(args)-1)
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid metadata pair %q, expected key=value", pair)
		}
		metadata[key] = value
	}

	if err := ingestService.UpdateMetadata(context.Background(), docID, metadata); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}

	cmd.Printf("Updated metadata for %s.\n", docID)
	return nil
}
