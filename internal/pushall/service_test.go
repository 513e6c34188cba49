package pushall_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/gitrepo"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/pushall"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
)

const (
	testCommitMessageConstant = "Sync local changes"
	testTargetPathConstant    = "/tmp/alpha"
	testBranchNameConstant    = "main"
)

type scriptedRepositoryService struct {
	nonRepositories map[string]bool
	cleanTrees      map[string]bool
	detachedHeads   map[string]bool
	failPush        map[string]bool
	commitCalls     []string
	pushCalls       []string
	stageCalls      []string
	commitMessages  []string
	branchCalls     []string
}

func (service *scriptedRepositoryService) IsGitRepository(executionContext context.Context, repositoryPath string) (bool, error) {
	return !service.nonRepositories[repositoryPath], nil
}

func (service *scriptedRepositoryService) HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	return !service.cleanTrees[repositoryPath], nil
}

func (service *scriptedRepositoryService) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	service.branchCalls = append(service.branchCalls, repositoryPath)
	if service.detachedHeads[repositoryPath] {
		return gitrepo.DetachedBranchName, nil
	}
	return testBranchNameConstant, nil
}

func (service *scriptedRepositoryService) StageAll(executionContext context.Context, repositoryPath string) error {
	service.stageCalls = append(service.stageCalls, repositoryPath)
	return nil
}

func (service *scriptedRepositoryService) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	service.commitCalls = append(service.commitCalls, repositoryPath)
	service.commitMessages = append(service.commitMessages, commitMessage)
	return nil
}

func (service *scriptedRepositoryService) Push(executionContext context.Context, repositoryPath string) error {
	service.pushCalls = append(service.pushCalls, repositoryPath)
	if service.failPush[repositoryPath] {
		return errors.New("remote rejected")
	}
	return nil
}

func buildProcessor(testInstance *testing.T, repository pushall.RepositoryService, options pushall.ProcessorOptions) *pushall.Processor {
	processor, creationError := pushall.NewProcessor(zap.NewNop(), repository, options)
	require.NoError(testInstance, creationError)
	return processor
}

func TestNewProcessorRequiresDependencies(testInstance *testing.T) {
	processor, creationError := pushall.NewProcessor(nil, &scriptedRepositoryService{}, pushall.ProcessorOptions{})
	require.Nil(testInstance, processor)
	require.ErrorIs(testInstance, creationError, pushall.ErrDependenciesMissing)
}

func TestProcessorCommitsAndPushesDirtyRepository(testInstance *testing.T) {
	repository := &scriptedRepositoryService{}
	processor := buildProcessor(testInstance, repository, pushall.ProcessorOptions{CommitMessage: testCommitMessageConstant})

	record, processError := processor.ProcessTarget(context.Background(), targets.Target{Path: testTargetPathConstant, Identifier: "alpha"})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusRanOK, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusCommitted, record.CommitStatus)
	require.Equal(testInstance, []string{testTargetPathConstant}, repository.stageCalls)
	require.Equal(testInstance, []string{testCommitMessageConstant}, repository.commitMessages)
	require.Equal(testInstance, []string{testTargetPathConstant}, repository.pushCalls)
}

func TestProcessorSkipsCleanRepository(testInstance *testing.T) {
	repository := &scriptedRepositoryService{cleanTrees: map[string]bool{testTargetPathConstant: true}}
	processor := buildProcessor(testInstance, repository, pushall.ProcessorOptions{})

	record, processError := processor.ProcessTarget(context.Background(), targets.Target{Path: testTargetPathConstant, Identifier: "alpha"})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.CommitStatusNoChanges, record.CommitStatus)
	require.Empty(testInstance, repository.commitCalls)
	require.Empty(testInstance, repository.pushCalls)
}

func TestProcessorSkipsNonRepositoryDirectory(testInstance *testing.T) {
	repository := &scriptedRepositoryService{nonRepositories: map[string]bool{testTargetPathConstant: true}}
	processor := buildProcessor(testInstance, repository, pushall.ProcessorOptions{})

	record, processError := processor.ProcessTarget(context.Background(), targets.Target{Path: testTargetPathConstant, Identifier: "alpha"})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.WorkflowStatusSkippedNonTarget, record.WorkflowStatus)
	require.Equal(testInstance, results.CommitStatusSkipped, record.CommitStatus)
}

func TestProcessorDryRunMutatesNothing(testInstance *testing.T) {
	repository := &scriptedRepositoryService{}
	processor := buildProcessor(testInstance, repository, pushall.ProcessorOptions{DryRun: true})

	record, processError := processor.ProcessTarget(context.Background(), targets.Target{Path: testTargetPathConstant, Identifier: "alpha"})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.CommitStatusDryRun, record.CommitStatus)
	require.Empty(testInstance, repository.stageCalls)
	require.Empty(testInstance, repository.commitCalls)
	require.Empty(testInstance, repository.pushCalls)
}

func TestProcessorSkipsPushOnDetachedHead(testInstance *testing.T) {
	repository := &scriptedRepositoryService{detachedHeads: map[string]bool{testTargetPathConstant: true}}
	processor := buildProcessor(testInstance, repository, pushall.ProcessorOptions{})

	record, processError := processor.ProcessTarget(context.Background(), targets.Target{Path: testTargetPathConstant, Identifier: "alpha"})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.CommitStatusCommitFailed, record.CommitStatus)
	require.Equal(testInstance, []string{testTargetPathConstant}, repository.branchCalls)
	require.Empty(testInstance, repository.stageCalls)
	require.Empty(testInstance, repository.commitCalls)
	require.Empty(testInstance, repository.pushCalls)
}

func TestProcessorReportsPushFailure(testInstance *testing.T) {
	repository := &scriptedRepositoryService{failPush: map[string]bool{testTargetPathConstant: true}}
	processor := buildProcessor(testInstance, repository, pushall.ProcessorOptions{})

	record, processError := processor.ProcessTarget(context.Background(), targets.Target{Path: testTargetPathConstant, Identifier: "alpha"})
	require.NoError(testInstance, processError)
	require.Equal(testInstance, results.CommitStatusCommitFailed, record.CommitStatus)
}

func seedPushRoot(testInstance *testing.T, targetNames ...string) string {
	rootDirectory := testInstance.TempDir()
	for _, targetName := range targetNames {
		require.NoError(testInstance, os.MkdirAll(filepath.Join(rootDirectory, targetName), 0o755))
	}
	return rootDirectory
}

func TestServiceRunSummarizesPushes(testInstance *testing.T) {
	rootDirectory := seedPushRoot(testInstance, "alpha", "beta")
	repository := &scriptedRepositoryService{cleanTrees: map[string]bool{filepath.Join(rootDirectory, "beta"): true}}

	service, creationError := pushall.NewService(pushall.ServiceDependencies{
		Logger:     zap.NewNop(),
		Repository: repository,
	}, pushall.ServiceOptions{TargetsRoot: rootDirectory, WorkerCount: 2})
	require.NoError(testInstance, creationError)

	summary, runError := service.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 2, summary.TotalTargets)
	require.Equal(testInstance, 1, summary.CommitCounts[results.CommitStatusCommitted])
	require.Equal(testInstance, 1, summary.CommitCounts[results.CommitStatusNoChanges])
}

func TestServiceRunReportsFailures(testInstance *testing.T) {
	rootDirectory := seedPushRoot(testInstance, "alpha")
	repository := &scriptedRepositoryService{failPush: map[string]bool{filepath.Join(rootDirectory, "alpha"): true}}

	service, creationError := pushall.NewService(pushall.ServiceDependencies{
		Logger:     zap.NewNop(),
		Repository: repository,
	}, pushall.ServiceOptions{TargetsRoot: rootDirectory, WorkerCount: 1})
	require.NoError(testInstance, creationError)

	summary, runError := service.Run(context.Background())
	require.ErrorIs(testInstance, runError, pushall.ErrPushHadFailures)
	require.Equal(testInstance, 1, summary.CommitCounts[results.CommitStatusCommitFailed])
}
