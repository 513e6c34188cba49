package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/aitool"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/checkpoint"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/workflow"
)

const (
	testTargetIdentifierConstant = "alpha-service"
	testToolIdentifierConstant   = "claude-sonnet-4-5"
)

type stubCheckpointStore struct {
	lastStatus      string
	lookupError     error
	appendError     error
	appendedRecords []checkpoint.Record
}

func (store *stubCheckpointStore) Append(record checkpoint.Record) error {
	if store.appendError != nil {
		return store.appendError
	}
	store.appendedRecords = append(store.appendedRecords, record)
	return nil
}

func (store *stubCheckpointStore) LastStatus(targetIdentifier string) (string, error) {
	return store.lastStatus, store.lookupError
}

type stubRepositoryService struct {
	isRepository  bool
	hasChanges    bool
	commitError   error
	stagedPaths   []string
	committedWith []string
}

func (service *stubRepositoryService) IsGitRepository(executionContext context.Context, repositoryPath string) (bool, error) {
	return service.isRepository, nil
}

func (service *stubRepositoryService) HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	return service.hasChanges, nil
}

func (service *stubRepositoryService) StageAll(executionContext context.Context, repositoryPath string) error {
	service.stagedPaths = append(service.stagedPaths, repositoryPath)
	return nil
}

func (service *stubRepositoryService) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	if service.commitError != nil {
		return service.commitError
	}
	service.committedWith = append(service.committedWith, commitMessage)
	return nil
}

type stubToolInvoker struct {
	outcome         aitool.Outcome
	invocationError error
	mutateReadme    bool
	invocations     []aitool.Invocation
}

func (invoker *stubToolInvoker) Run(executionContext context.Context, invocation aitool.Invocation) (aitool.Outcome, error) {
	invoker.invocations = append(invoker.invocations, invocation)
	if invoker.mutateReadme {
		readmePath := filepath.Join(invocation.WorkingDirectory, "README.md")
		if writeError := os.WriteFile(readmePath, []byte("# Regenerated\n"), 0o644); writeError != nil {
			return aitool.Outcome{}, writeError
		}
	}
	return invoker.outcome, invoker.invocationError
}

type recordingResultWriter struct {
	writtenRecords []results.Record
}

func (writer *recordingResultWriter) Write(record results.Record) error {
	writer.writtenRecords = append(writer.writtenRecords, record)
	return nil
}

type recordingFailureSet struct {
	recordedTargets []string
}

func (failureSet *recordingFailureSet) Record(targetIdentifier string) error {
	failureSet.recordedTargets = append(failureSet.recordedTargets, targetIdentifier)
	return nil
}

type runnerFixture struct {
	checkpoints  *stubCheckpointStore
	repository   *stubRepositoryService
	tool         *stubToolInvoker
	resultWriter *recordingResultWriter
	failureSet   *recordingFailureSet
}

func newRunner(testInstance *testing.T, fixture runnerFixture, options workflow.RunnerOptions) *workflow.Runner {
	options.ToolIdentifier = testToolIdentifierConstant
	runner, creationError := workflow.NewRunner(
		zap.NewNop(),
		fixture.checkpoints,
		fixture.repository,
		fixture.tool,
		fixture.resultWriter,
		fixture.failureSet,
		workflow.NewBaselineProvisioner(""),
		options,
	)
	require.NoError(testInstance, creationError)
	return runner
}

func defaultFixture() runnerFixture {
	return runnerFixture{
		checkpoints:  &stubCheckpointStore{},
		repository:   &stubRepositoryService{isRepository: true, hasChanges: true},
		tool:         &stubToolInvoker{mutateReadme: true},
		resultWriter: &recordingResultWriter{},
		failureSet:   &recordingFailureSet{},
	}
}

func testTarget(testInstance *testing.T) targets.Target {
	return targets.Target{Path: testInstance.TempDir(), Identifier: testTargetIdentifierConstant}
}

func TestNewRunnerRequiresDependencies(testInstance *testing.T) {
	_, creationError := workflow.NewRunner(nil, nil, nil, nil, nil, nil, nil, workflow.RunnerOptions{})
	require.ErrorIs(testInstance, creationError, workflow.ErrRunnerDependenciesMissing)
}

func TestProcessTargetRunsToolAndCommits(testInstance *testing.T) {
	fixture := defaultFixture()
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanOK, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusCommitted, record.CommitStatus)

	require.Len(testInstance, fixture.tool.invocations, 1)
	require.Len(testInstance, fixture.checkpoints.appendedRecords, 1)
	appendedRecord := fixture.checkpoints.appendedRecords[0]
	require.Equal(testInstance, checkpoint.StatusSucceeded, appendedRecord.Status)
	require.Equal(testInstance, testToolIdentifierConstant, appendedRecord.ToolIdentifier)
	require.Equal(testInstance, "tool ran", appendedRecord.Note)

	require.Len(testInstance, fixture.resultWriter.writtenRecords, 1)
	require.Empty(testInstance, fixture.failureSet.recordedTargets)
}

func TestProcessTargetSkipsToolWhenCheckpointSucceeded(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.checkpoints.lastStatus = checkpoint.StatusSucceeded
	fixture.repository.hasChanges = false
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusSkippedOK, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusNoChanges, record.CommitStatus)

	require.Empty(testInstance, fixture.tool.invocations)
	require.Len(testInstance, fixture.checkpoints.appendedRecords, 1)
	require.Equal(testInstance, "checkpoint skip", fixture.checkpoints.appendedRecords[0].Note)
	require.Len(testInstance, fixture.repository.stagedPaths, 1)
}

func TestProcessTargetForceOverridesCheckpoint(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.checkpoints.lastStatus = checkpoint.StatusSucceeded
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{Force: true})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanOK, record.WorkflowStatus)
	require.Len(testInstance, fixture.tool.invocations, 1)
}

func TestProcessTargetNonRepositoryIsSkippedNonTarget(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.repository.isRepository = false
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusSkippedNonTarget, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusSkipped, record.CommitStatus)

	require.Empty(testInstance, fixture.tool.invocations)
	require.Empty(testInstance, fixture.repository.stagedPaths)
	require.Empty(testInstance, fixture.checkpoints.appendedRecords)
}

func TestProcessTargetToolFailureFeedsFailureSet(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.tool.outcome = aitool.Outcome{ExitCode: 2}
	fixture.tool.mutateReadme = false
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanFail, record.WorkflowStatus)
	require.Equal(testInstance, 2, record.ExitCode)
	require.Equal(testInstance, results.CommitStatusSkipped, record.CommitStatus)

	require.Equal(testInstance, []string{testTargetIdentifierConstant}, fixture.failureSet.recordedTargets)
	require.Len(testInstance, fixture.checkpoints.appendedRecords, 1)
	require.Equal(testInstance, checkpoint.StatusFailed, fixture.checkpoints.appendedRecords[0].Status)
	require.Empty(testInstance, fixture.repository.stagedPaths)
}

func TestProcessTargetNoChangesNeverCommits(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.repository.hasChanges = false
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.CommitStatusNoChanges, record.CommitStatus)
	require.Empty(testInstance, fixture.repository.committedWith)
}

func TestProcessTargetCommitFailureIsRecorded(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.repository.commitError = errors.New("missing identity configuration")
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	record, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanOK, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusCommitFailed, record.CommitStatus)
}

func TestProcessTargetDryRunMutatesNothing(testInstance *testing.T) {
	fixture := defaultFixture()
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{DryRun: true})

	targetDirectory := testInstance.TempDir()
	record, processError := runner.ProcessTarget(context.Background(), targets.Target{Path: targetDirectory, Identifier: testTargetIdentifierConstant})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanOK, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusDryRun, record.CommitStatus)

	require.Empty(testInstance, fixture.tool.invocations)
	require.Empty(testInstance, fixture.checkpoints.appendedRecords)
	require.Empty(testInstance, fixture.resultWriter.writtenRecords)
	require.Empty(testInstance, fixture.repository.stagedPaths)

	directoryEntries, readError := os.ReadDir(targetDirectory)
	require.NoError(testInstance, readError)
	require.Empty(testInstance, directoryEntries)
}

func TestProcessTargetCheckpointLookupFailureIsFatal(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.checkpoints.lookupError = errors.New("checkpoint log unreadable")
	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})

	_, processError := runner.ProcessTarget(context.Background(), testTarget(testInstance))
	require.Error(testInstance, processError)
	require.Empty(testInstance, fixture.resultWriter.writtenRecords)
}

func TestProcessTargetFixupRepairsUnchangedArtifact(testInstance *testing.T) {
	fixture := defaultFixture()
	fixture.tool.mutateReadme = false

	targetDirectory := testInstance.TempDir()
	transcriptPath := filepath.Join(testInstance.TempDir(), testTargetIdentifierConstant+".log")
	transcript := "I propose:\n```markdown\n# Repaired Service\n\nRecovered from transcript.\n```\n"
	require.NoError(testInstance, os.WriteFile(transcriptPath, []byte(transcript), testFilePermissions))
	fixture.tool.outcome = aitool.Outcome{TranscriptPath: transcriptPath}

	runner := newRunner(testInstance, fixture, workflow.RunnerOptions{})
	record, processError := runner.ProcessTarget(context.Background(), targets.Target{Path: targetDirectory, Identifier: testTargetIdentifierConstant})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanOK, record.WorkflowStatus)

	readmeContents, readError := os.ReadFile(filepath.Join(targetDirectory, testReadmeNameConstant))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(readmeContents), "# Repaired Service")
	require.Contains(testInstance, string(readmeContents), "Recovered from transcript.")
}
