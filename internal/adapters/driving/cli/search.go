package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

var (
	searchSession string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [collection-id] [query]",
	Short: "Ask a question against a collection",
	Long: `Runs hybrid retrieval over the collection, combining semantic
(vector) and lexical search, and synthesises a confidence-scored answer
from the retrieved passages. Pass --session to keep conversational
context across queries.`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchSession, "session", "s", "", "session ID for conversational context")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	collectionID, query := args[0], args[1]

	// Without --session each search gets a fresh session, so one-off
	// queries never share (or accumulate) conversational history.
	sessionID := searchSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	output, err := queryService.Search(context.Background(), collectionID, sessionID, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, output)
	}
	return outputSearchText(cmd, output)
}

func outputSearchJSON(cmd *cobra.Command, output *domain.SearchOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, output *domain.SearchOutput) error {
	if output.Answer != "" {
		cmd.Println(output.Answer)
		cmd.Println()
	} else if output.GenerationUnavailable {
		cmd.Println("Answer generation is unavailable; showing retrieved passages only.")
		cmd.Println()
	}

	if len(output.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Sources:")
	for i := range output.Results {
		result := &output.Results[i]
		cmd.Printf("  [%d] %s (confidence %.2f)\n", i+1, result.Chunk.DocumentID, result.Confidence)
		cmd.Printf("      %s\n", snippet(result.Chunk.Text, 120))
	}
	cmd.Println()

	cmd.Printf("Overall confidence: %.2f\n", output.OverallConfidence)
	if output.RewrittenQuery != "" {
		cmd.Printf("Interpreted as: %s\n", output.RewrittenQuery)
	}
	return nil
}

// snippet truncates text to max runes on a best-effort word boundary.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	cut := max
	for cut > 0 && runes[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return string(runes[:cut]) + "..."
}
