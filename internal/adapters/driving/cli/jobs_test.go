package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobsCmd_Use(t *testing.T) {
	assert.Equal(t, "jobs", jobsCmd.Use)
}

func TestJobsStatusCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"jobs", "status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestJobsStatusCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"jobs", "status", "job-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Job: job-1")
	assert.Contains(t, buf.String(), "State: queued")
	assert.Contains(t, buf.String(), "Attempts: 1")
}

func TestJobsDeadLettersCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"jobs", "dead-letters"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "job-dead")
	assert.Contains(t, buf.String(), "adapter unavailable")
	assert.Contains(t, buf.String(), "Total: 1 jobs")
}

func TestJobsResubmitCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"jobs", "resubmit", "job-dead"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Resubmitted as job job-9")
}

func TestJobsStatusCmd_ServiceNotConfigured(t *testing.T) {
	oldService := jobService
	jobService = nil
	defer func() {
		jobService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"jobs", "status", "job-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "job service not configured")
}
