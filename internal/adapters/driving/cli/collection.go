package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage document collections",
	Long:  `Create collections, inspect their ingestion state, or rebuild their embeddings.`,
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionCreate,
}

var collectionStatusCmd = &cobra.Command{
	Use:   "status [collection-id]",
	Short: "Show collection status and question coverage",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionStatus,
}

var collectionReembedCmd = &cobra.Command{
	Use:   "reembed [collection-id]",
	Short: "Re-embed every document in a collection",
	Long: `Enqueues a job that re-chunks and re-embeds all documents in the
collection under the currently configured embedding model. Use after
switching embedding models or providers.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionReembed,
}

// collectionOwner is a flag for the create command.
var collectionOwner string

func init() {
	collectionCreateCmd.Flags().StringVarP(&collectionOwner, "owner", "o", "local", "owner of the collection")

	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionStatusCmd)
	collectionCmd.AddCommand(collectionReembedCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	collection, err := ingestService.CreateCollection(context.Background(), collectionOwner, args[0])
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	cmd.Printf("Created collection %s\n", collection.Name)
	cmd.Printf("  ID: %s\n", collection.ID)
	cmd.Printf("  Owner: %s\n", collection.Owner)
	return nil
}

func runCollectionStatus(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	report, err := ingestService.CollectionStatus(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get collection status: %w", err)
	}

	cmd.Printf("Collection: %s (%s)\n", report.Collection.Name, report.Collection.ID)
	cmd.Printf("  Status: %s\n", report.Collection.Status)
	if report.Collection.EmbedModel != "" {
		cmd.Printf("  Embedding model: %s (%d dimensions)\n", report.Collection.EmbedModel, report.Collection.Dimensions)
	}
	cmd.Println()

	statuses := make([]domain.DocumentStatus, 0, len(report.DocumentsByStatus))
	for status := range report.DocumentsByStatus {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	cmd.Println("Documents:")
	if len(statuses) == 0 {
		cmd.Println("  none")
	}
	for _, status := range statuses {
		cmd.Printf("  %s: %d\n", status, report.DocumentsByStatus[status])
	}
	cmd.Println()

	cmd.Printf("Chunks: %d\n", report.TotalChunks)
	cmd.Printf("Question coverage: %.0f%% (%d questions)\n", report.QuestionCoverage*100, len(report.Questions))
	return nil
}

func runCollectionReembed(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	jobID, err := ingestService.ReembedCollection(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to start re-embed: %w", err)
	}

	cmd.Printf("Re-embed queued as job %s\n", jobID)
	cmd.Println("Track progress with: tessera jobs status " + jobID)
	return nil
}
