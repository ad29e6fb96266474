package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage background jobs",
	Long:  `Check job status, list dead-lettered jobs, or resubmit them.`,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show a job's state and attempts",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsDeadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "List jobs that exhausted their retries",
	Args:  cobra.NoArgs,
	RunE:  runJobsDeadLetters,
}

var jobsResubmitCmd = &cobra.Command{
	Use:   "resubmit [job-id]",
	Short: "Resubmit a dead-lettered job",
	Long: `Enqueues a fresh job carrying the same payload as the dead-lettered
one. The original job stays dead-lettered for the audit trail.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsResubmit,
}

func init() {
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsDeadLettersCmd)
	jobsCmd.AddCommand(jobsResubmitCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	status, err := jobService.Status(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get job status: %w", err)
	}

	cmd.Printf("Job: %s\n", status.JobID)
	cmd.Printf("  State: %s\n", status.State)
	cmd.Printf("  Attempts: %d\n", status.Attempts)
	if status.LastError != "" {
		cmd.Printf("  Last error: %s\n", status.LastError)
	}
	return nil
}

func runJobsDeadLetters(cmd *cobra.Command, _ []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	letters, err := jobService.DeadLetters(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	if len(letters) == 0 {
		cmd.Println("No dead-lettered jobs.")
		return nil
	}

	cmd.Println("Dead-lettered jobs:")
	cmd.Println()
	for i := range letters {
		cmd.Printf("  %s\n", letters[i].ID)
		cmd.Printf("    Kind: %s\n", letters[i].Kind)
		cmd.Printf("    Attempts: %d\n", letters[i].Attempts)
		if letters[i].LastError != "" {
			cmd.Printf("    Last error: %s\n", letters[i].LastError)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d jobs\n", len(letters))
	return nil
}

func runJobsResubmit(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	newID, err := jobService.Resubmit(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to resubmit job: %w", err)
	}

	cmd.Printf("Resubmitted as job %s\n", newID)
	return nil
}
