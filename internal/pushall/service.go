// Package pushall commits and pushes every discovered repository with working-tree changes.
package pushall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/gitrepo"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/runstate"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/scheduler"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/ui"
)

const (
	dependenciesMissingMessageConstant = "push service dependencies not configured"
	targetsRootRequiredMessageConstant = "targets root required"
	pushFailuresMessageConstant        = "push run finished with failures"
	defaultCommitMessageConstant       = "Batch update"
	genericFailureExitCodeConstant     = 1
	summaryTrailingNewlineConstant     = "\n"
	targetLogFieldConstant             = "target"
	pushFailedLogMessageConstant       = "push failed"
	detachedHeadLogMessageConstant     = "push skipped on detached HEAD"
)

// Sentinel errors reported by the push service.
var (
	ErrDependenciesMissing = errors.New(dependenciesMissingMessageConstant)
	ErrTargetsRootRequired = errors.New(targetsRootRequiredMessageConstant)
	ErrPushHadFailures     = errors.New(pushFailuresMessageConstant)
)

// RepositoryService exposes the git operations the push processor performs.
type RepositoryService interface {
	IsGitRepository(executionContext context.Context, repositoryPath string) (bool, error)
	HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error)
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	StageAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, commitMessage string) error
	Push(executionContext context.Context, repositoryPath string) error
}

// ProcessorOptions configures the per-target push behavior.
type ProcessorOptions struct {
	CommitMessage string
	DryRun        bool
}

// Processor commits and pushes one repository. It carries no checkpoint gate
// and invokes no external tool.
type Processor struct {
	logger      *zap.Logger
	repository  RepositoryService
	options     ProcessorOptions
	currentTime func() time.Time
}

// NewProcessor constructs a push Processor.
func NewProcessor(logger *zap.Logger, repository RepositoryService, options ProcessorOptions) (*Processor, error) {
	if logger == nil || repository == nil {
		return nil, ErrDependenciesMissing
	}
	if len(strings.TrimSpace(options.CommitMessage)) == 0 {
		options.CommitMessage = defaultCommitMessageConstant
	}
	return &Processor{logger: logger, repository: repository, options: options, currentTime: time.Now}, nil
}

// ProcessTarget stages, commits, and pushes one repository's changes.
func (processor *Processor) ProcessTarget(executionContext context.Context, target targets.Target) (results.Record, error) {
	startedAt := processor.currentTime()
	record := results.Record{TargetIdentifier: target.Identifier}

	isRepository, repositoryCheckError := processor.repository.IsGitRepository(executionContext, target.Path)
	if repositoryCheckError != nil {
		record.WorkflowStatus = results.WorkflowStatusRanFail
		record.ExitCode = genericFailureExitCodeConstant
		record.CommitStatus = results.CommitStatusSkipped
		return processor.finish(record, startedAt), nil
	}
	if !isRepository {
		record.WorkflowStatus = results.WorkflowStatusSkippedNonTarget
		record.CommitStatus = results.CommitStatusSkipped
		return processor.finish(record, startedAt), nil
	}

	record.WorkflowStatus = results.WorkflowStatusRanOK
	record.CommitStatus = processor.attemptPush(executionContext, target)
	return processor.finish(record, startedAt), nil
}

func (processor *Processor) attemptPush(executionContext context.Context, target targets.Target) results.CommitStatus {
	hasChanges, statusError := processor.repository.HasWorkingTreeChanges(executionContext, target.Path)
	if statusError != nil {
		return results.CommitStatusCommitFailed
	}
	if !hasChanges {
		return results.CommitStatusNoChanges
	}

	if processor.options.DryRun {
		return results.CommitStatusDryRun
	}

	branchName, branchError := processor.repository.CurrentBranch(executionContext, target.Path)
	if branchError != nil {
		return results.CommitStatusCommitFailed
	}
	if branchName == gitrepo.DetachedBranchName {
		processor.logger.Warn(detachedHeadLogMessageConstant, zap.String(targetLogFieldConstant, target.Identifier))
		return results.CommitStatusCommitFailed
	}

	if stageError := processor.repository.StageAll(executionContext, target.Path); stageError != nil {
		return results.CommitStatusCommitFailed
	}
	if commitError := processor.repository.Commit(executionContext, target.Path, processor.options.CommitMessage); commitError != nil {
		return results.CommitStatusCommitFailed
	}
	if pushError := processor.repository.Push(executionContext, target.Path); pushError != nil {
		processor.logger.Warn(pushFailedLogMessageConstant, zap.String(targetLogFieldConstant, target.Identifier))
		return results.CommitStatusCommitFailed
	}
	return results.CommitStatusCommitted
}

func (processor *Processor) finish(record results.Record, startedAt time.Time) results.Record {
	record.DurationSeconds = int(processor.currentTime().Sub(startedAt).Seconds())
	return record
}

// ServiceDependencies carries the collaborators a push run needs.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Repository RepositoryService
	Output     io.Writer
}

// ServiceOptions configures one batch push run.
type ServiceOptions struct {
	TargetsRoot   string
	CommitMessage string
	WorkerCount   int
	TargetTimeout time.Duration
	DryRun        bool
}

// Service runs the push processor over every discovered target and renders the
// aggregate summary. Records stay in memory; push runs own no run directory.
type Service struct {
	logger     *zap.Logger
	repository RepositoryService
	output     io.Writer
	options    ServiceOptions
}

// NewService validates the collaborators and constructs a Service.
func NewService(dependencies ServiceDependencies, options ServiceOptions) (*Service, error) {
	if dependencies.Logger == nil || dependencies.Repository == nil {
		return nil, ErrDependenciesMissing
	}
	if len(strings.TrimSpace(options.TargetsRoot)) == 0 {
		return nil, ErrTargetsRootRequired
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	return &Service{
		logger:     dependencies.Logger,
		repository: dependencies.Repository,
		output:     dependencies.Output,
		options:    options,
	}, nil
}

// Run pushes every discovered repository and returns the aggregate summary.
// ErrPushHadFailures is returned when any commit or push failed.
func (service *Service) Run(executionContext context.Context) (results.Summary, error) {
	discoverer := targets.NewDiscoverer(runstate.StateDirectoryName)
	targetList, discoveryError := discoverer.DiscoverTargets(service.options.TargetsRoot)
	if discoveryError != nil {
		return results.Summary{}, discoveryError
	}

	processor, processorError := NewProcessor(service.logger, service.repository, ProcessorOptions{
		CommitMessage: service.options.CommitMessage,
		DryRun:        service.options.DryRun,
	})
	if processorError != nil {
		return results.Summary{}, processorError
	}

	progress := ui.NewBatchProgressLogger(service.logger)
	pool, poolError := scheduler.NewPool(processor, progress, scheduler.PoolOptions{
		WorkerCount:   service.options.WorkerCount,
		TargetTimeout: service.options.TargetTimeout,
	})
	if poolError != nil {
		return results.Summary{}, poolError
	}

	records, runError := pool.Run(executionContext, targetList)
	if runError != nil {
		return results.Summary{}, runError
	}

	summary := results.SummarizeRecords(records)
	fmt.Fprint(service.output, results.Render(summary)+summaryTrailingNewlineConstant)

	if summary.FailureCount() > 0 {
		return summary, ErrPushHadFailures
	}
	return summary, nil
}
