package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessera-labs/tessera/internal/connectors/filesystem"
)

var watchCmd = &cobra.Command{
	Use:   "watch [collection-id] [directory]",
	Short: "Watch a directory and ingest changed files",
	Long: `Performs an initial sync of the directory, then watches it for new
and modified text files, submitting each change for ingestion. Runs
until interrupted.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	collectionID, dir := args[0], args[1]

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	connector := filesystem.New(collectionID, dir, ingestService)

	n, err := connector.Sync(ctx)
	if err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}
	cmd.Printf("Synced %d files from %s\n", n, dir)
	cmd.Println("Watching for changes. Press Ctrl+C to stop.")

	if err := connector.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
