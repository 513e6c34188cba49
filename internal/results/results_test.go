package results_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
)

const (
	testTargetIdentifierConstant = "alpha-service"
	testRecordPermissions        = 0o644
)

func TestNewWriterRequiresDirectory(testInstance *testing.T) {
	writer, creationError := results.NewWriter("  ")
	require.Nil(testInstance, writer)
	require.ErrorIs(testInstance, creationError, results.ErrResultsDirectoryRequired)
}

func TestWriterPersistsAndOverwritesRecords(testInstance *testing.T) {
	resultsDirectory := testInstance.TempDir()
	writer, creationError := results.NewWriter(resultsDirectory)
	require.NoError(testInstance, creationError)

	firstRecord := results.Record{
		TargetIdentifier: testTargetIdentifierConstant,
		WorkflowStatus:   results.WorkflowStatusRanFail,
		ExitCode:         1,
		CommitStatus:     results.CommitStatusSkipped,
	}
	require.NoError(testInstance, writer.Write(firstRecord))

	retriedRecord := results.Record{
		TargetIdentifier: testTargetIdentifierConstant,
		WorkflowStatus:   results.WorkflowStatusRanOK,
		CommitStatus:     results.CommitStatusCommitted,
		DurationSeconds:  17,
	}
	require.NoError(testInstance, writer.Write(retriedRecord))

	recordContents, readError := os.ReadFile(filepath.Join(resultsDirectory, testTargetIdentifierConstant+".yaml"))
	require.NoError(testInstance, readError)

	var decodedRecord results.Record
	require.NoError(testInstance, yaml.Unmarshal(recordContents, &decodedRecord))
	require.Equal(testInstance, retriedRecord, decodedRecord)
}

func TestWriterRequiresTargetIdentifier(testInstance *testing.T) {
	writer, creationError := results.NewWriter(testInstance.TempDir())
	require.NoError(testInstance, creationError)
	require.ErrorIs(testInstance, writer.Write(results.Record{}), results.ErrRecordIdentifierRequired)
}

func TestReporterSummarizesRecords(testInstance *testing.T) {
	resultsDirectory := testInstance.TempDir()
	writer, creationError := results.NewWriter(resultsDirectory)
	require.NoError(testInstance, creationError)

	recordsToWrite := []results.Record{
		{TargetIdentifier: "alpha", WorkflowStatus: results.WorkflowStatusRanOK, CommitStatus: results.CommitStatusCommitted},
		{TargetIdentifier: "beta", WorkflowStatus: results.WorkflowStatusSkippedOK, CommitStatus: results.CommitStatusNoChanges},
		{TargetIdentifier: "gamma", WorkflowStatus: results.WorkflowStatusSkippedNonTarget, CommitStatus: results.CommitStatusSkipped},
		{TargetIdentifier: "delta", WorkflowStatus: results.WorkflowStatusRanFail, ExitCode: 124, CommitStatus: results.CommitStatusSkipped},
	}
	for _, recordToWrite := range recordsToWrite {
		require.NoError(testInstance, writer.Write(recordToWrite))
	}

	reporter, reporterError := results.NewReporter(resultsDirectory)
	require.NoError(testInstance, reporterError)

	summary, summarizeError := reporter.Summarize()
	require.NoError(testInstance, summarizeError)
	require.Equal(testInstance, 4, summary.TotalTargets)
	require.Equal(testInstance, 1, summary.WorkflowCounts[results.WorkflowStatusRanOK])
	require.Equal(testInstance, 1, summary.WorkflowCounts[results.WorkflowStatusRanFail])
	require.Equal(testInstance, 1, summary.WorkflowCounts[results.WorkflowStatusSkippedOK])
	require.Equal(testInstance, 1, summary.WorkflowCounts[results.WorkflowStatusSkippedNonTarget])
	require.Equal(testInstance, 2, summary.CommitCounts[results.CommitStatusSkipped])
	require.Equal(testInstance, 1, summary.FailureCount())
}

func TestReporterToleratesUnreadableRecords(testInstance *testing.T) {
	resultsDirectory := testInstance.TempDir()
	writer, creationError := results.NewWriter(resultsDirectory)
	require.NoError(testInstance, creationError)
	require.NoError(testInstance, writer.Write(results.Record{
		TargetIdentifier: testTargetIdentifierConstant,
		WorkflowStatus:   results.WorkflowStatusRanOK,
		CommitStatus:     results.CommitStatusCommitted,
	}))

	require.NoError(testInstance, os.WriteFile(filepath.Join(resultsDirectory, "broken.yaml"), []byte("\t:::not yaml"), testRecordPermissions))
	require.NoError(testInstance, os.WriteFile(filepath.Join(resultsDirectory, "empty.yaml"), nil, testRecordPermissions))
	require.NoError(testInstance, os.WriteFile(filepath.Join(resultsDirectory, "notes.txt"), []byte("ignored"), testRecordPermissions))

	reporter, reporterError := results.NewReporter(resultsDirectory)
	require.NoError(testInstance, reporterError)

	summary, summarizeError := reporter.Summarize()
	require.NoError(testInstance, summarizeError)
	require.Equal(testInstance, 1, summary.TotalTargets)
	require.Zero(testInstance, summary.FailureCount())
}

func TestReporterEmptyDirectoryYieldsZeroSummary(testInstance *testing.T) {
	reporter, reporterError := results.NewReporter(filepath.Join(testInstance.TempDir(), "missing"))
	require.NoError(testInstance, reporterError)

	summary, summarizeError := reporter.Summarize()
	require.NoError(testInstance, summarizeError)
	require.Zero(testInstance, summary.TotalTargets)
}

func TestSummarizeRecordsTalliesInMemoryRecords(testInstance *testing.T) {
	records := []results.Record{
		{TargetIdentifier: "alpha", WorkflowStatus: results.WorkflowStatusRanOK, CommitStatus: results.CommitStatusDryRun},
		{TargetIdentifier: "beta", WorkflowStatus: results.WorkflowStatusRanFail, ExitCode: 1, CommitStatus: results.CommitStatusSkipped},
		{TargetIdentifier: ""},
	}

	summary := results.SummarizeRecords(records)
	require.Equal(testInstance, 2, summary.TotalTargets)
	require.Equal(testInstance, 1, summary.WorkflowCounts[results.WorkflowStatusRanOK])
	require.Equal(testInstance, 2, summary.CommitCounts[results.CommitStatusDryRun]+summary.CommitCounts[results.CommitStatusSkipped])
	require.Equal(testInstance, 1, summary.FailureCount())
}

func TestRenderSummaryBlock(testInstance *testing.T) {
	summary := results.Summary{
		TotalTargets: 3,
		WorkflowCounts: map[results.WorkflowStatus]int{
			results.WorkflowStatusRanOK:     2,
			results.WorkflowStatusSkippedOK: 1,
		},
		CommitCounts: map[results.CommitStatus]int{
			results.CommitStatusCommitted: 2,
			results.CommitStatusNoChanges: 1,
		},
	}

	rendered := results.Render(summary)
	require.Contains(testInstance, rendered, "Run summary")
	require.Contains(testInstance, rendered, "targets: 3")
	require.Contains(testInstance, rendered, "ran-ok: 2")
	require.Contains(testInstance, rendered, "skipped-ok: 1")
	require.Contains(testInstance, rendered, "committed: 2")
	require.Contains(testInstance, rendered, "no_changes: 1")
}
