package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessera-labs/tessera/internal/connectors/filesystem"
	"github.com/tessera-labs/tessera/internal/normalisers"
)

// ingestForce is a flag for the ingest command.
var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [collection-id] [path...]",
	Short: "Ingest files or directories into a collection",
	Long: `Submits files for ingestion. Directories are walked recursively and
every text file found is submitted. Each submission is processed as a
background job: chunked, embedded, and indexed for retrieval.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-ingest documents that are already ready")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	collectionID := args[0]
	ctx := context.Background()

	total := 0
	for _, path := range args[1:] {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if info.IsDir() {
			connector := filesystem.New(collectionID, path, ingestService)
			n, err := connector.Sync(ctx)
			if err != nil {
				return fmt.Errorf("failed to sync %s: %w", path, err)
			}
			cmd.Printf("Submitted %d files from %s\n", n, path)
			total += n
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content := normalisers.Normalise(path, string(raw))
		jobID, err := ingestService.SubmitDocument(ctx, collectionID, filesystem.SourceRef(path), content, ingestForce)
		if err != nil {
			return fmt.Errorf("failed to submit %s: %w", path, err)
		}
		cmd.Printf("Submitted %s as job %s\n", path, jobID)
		total++
	}

	cmd.Printf("Total: %d documents submitted\n", total)
	return nil
}
