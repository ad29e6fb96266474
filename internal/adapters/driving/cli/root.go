package cli

import (
	"github.com/spf13/cobra"

	"github.com/tessera-labs/tessera/internal/core/ports/driving"
	"github.com/tessera-labs/tessera/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
	dataDir    string
)

// Services the commands call. Wired by main via SetServices, or by a
// bootstrap hook on first use.
var (
	ingestService driving.IngestService
	queryService  driving.QueryService
	jobService    driving.JobService
)

// bootstrap builds the services lazily, so commands that never touch
// them (version, help) start without opening storage.
var bootstrap func() error

var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Local-first RAG pipeline engine",
	Long: `Tessera ingests documents into collections, builds hybrid
dense and lexical indexes over them, and answers natural-language
queries with retrieval-grounded, confidence-scored responses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if ingestService == nil && bootstrap != nil && cmd.Name() != "version" && cmd.Name() != "help" {
			return bootstrap()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetServices wires the engine into the commands.
func SetServices(ingest driving.IngestService, query driving.QueryService, jobs driving.JobService) {
	ingestService = ingest
	queryService = query
	jobService = jobs
}

// SetBootstrap registers a hook that builds the services on first use.
func SetBootstrap(fn func() error) {
	bootstrap = fn
}

// ConfigPath returns the --config flag value.
func ConfigPath() string { return configPath }

// DataDir returns the --data-dir flag value.
func DataDir() string { return dataDir }
