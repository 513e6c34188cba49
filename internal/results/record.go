package results

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorkflowStatus enumerates terminal workflow outcomes for one target.
type WorkflowStatus string

// Workflow status enumerations.
const (
	WorkflowStatusRanOK            WorkflowStatus = "ran-ok"
	WorkflowStatusRanFail          WorkflowStatus = "ran-fail"
	WorkflowStatusSkippedOK        WorkflowStatus = "skipped-ok"
	WorkflowStatusSkippedNonTarget WorkflowStatus = "skipped-non-target"
)

// CommitStatus enumerates terminal commit-phase outcomes for one target.
type CommitStatus string

// Commit status enumerations.
const (
	CommitStatusCommitted    CommitStatus = "committed"
	CommitStatusNoChanges    CommitStatus = "no_changes"
	CommitStatusCommitFailed CommitStatus = "commit_failed"
	CommitStatusSkipped      CommitStatus = "skipped"
	CommitStatusDryRun       CommitStatus = "dry_run"
)

const (
	recordFileExtensionConstant     = ".yaml"
	recordFilePermissionsConstant   = 0o644
	resultsDirectoryRequiredMessage = "results directory required"
	recordIdentifierRequiredMessage = "result record target identifier required"
	recordWriteFailureTemplate      = "writing result record for %s: %w"
	recordEncodeFailureTemplate     = "encoding result record for %s: %w"
)

// Sentinel errors reported by the record writer.
var (
	ErrResultsDirectoryRequired = errors.New(resultsDirectoryRequiredMessage)
	ErrRecordIdentifierRequired = errors.New(recordIdentifierRequiredMessage)
)

// Record captures the terminal outcome of one target for one run. Retried
// targets overwrite their record within the same run scope.
type Record struct {
	TargetIdentifier string         `yaml:"target_id"`
	WorkflowStatus   WorkflowStatus `yaml:"workflow_status"`
	ExitCode         int            `yaml:"exit_code"`
	CommitStatus     CommitStatus   `yaml:"commit_status"`
	DurationSeconds  int            `yaml:"duration_seconds"`
}

// Writer persists one YAML record file per target inside the run results directory.
type Writer struct {
	resultsDirectory string
}

// NewWriter constructs a Writer for the provided results directory.
func NewWriter(resultsDirectory string) (*Writer, error) {
	if len(strings.TrimSpace(resultsDirectory)) == 0 {
		return nil, ErrResultsDirectoryRequired
	}
	return &Writer{resultsDirectory: resultsDirectory}, nil
}

// Write persists the record, replacing any earlier record for the same target.
func (writer *Writer) Write(record Record) error {
	if len(strings.TrimSpace(record.TargetIdentifier)) == 0 {
		return ErrRecordIdentifierRequired
	}

	encodedRecord, encodeError := yaml.Marshal(record)
	if encodeError != nil {
		return fmt.Errorf(recordEncodeFailureTemplate, record.TargetIdentifier, encodeError)
	}

	recordPath := filepath.Join(writer.resultsDirectory, record.TargetIdentifier+recordFileExtensionConstant)
	if writeError := os.WriteFile(recordPath, encodedRecord, recordFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(recordWriteFailureTemplate, record.TargetIdentifier, writeError)
	}
	return nil
}
