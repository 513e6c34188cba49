package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/aitool"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/checkpoint"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/execshell"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/githubcli"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/gitrepo"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/runstate"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/scheduler"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/ui"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/workflow"
)

const (
	dependenciesMissingMessageConstant  = "generate service dependencies not configured"
	targetsRootRequiredMessageConstant  = "targets root required"
	apiKeyRequiredMessageConstant       = "api key required unless running dry"
	runFailuresMessageConstant          = "run finished with failures"
	checkpointStoreErrorTemplate        = "opening checkpoint log: %w"
	runLayoutErrorTemplateConstant      = "preparing run layout: %w"
	noTargetsLogMessageConstant         = "no targets discovered"
	runStartedLogMessageConstant        = "run started"
	runIdentifierLogFieldConstant       = "run_id"
	targetCountLogFieldConstant         = "targets"
	targetLogFieldConstant              = "target"
	descriptionRefreshFailedLogMessage  = "repository description refresh failed"
	descriptionRefreshedLogMessage      = "repository description refreshed"
	summaryTrailingNewlineConstant      = "\n"
	descriptionMaximumLengthConstant    = 350
	readmeLeadFileNameConstant          = "README.md"
	badgeLinePrefixConstant             = "[!["
	headingLinePrefixConstant           = "#"
	leadParagraphLineSeparatorConstant  = " "
	truncatedDescriptionSuffixConstant  = "…"
	truncatedDescriptionReserveConstant = 1
)

// Sentinel errors reported by the generate service.
var (
	ErrDependenciesMissing = errors.New(dependenciesMissingMessageConstant)
	ErrTargetsRootRequired = errors.New(targetsRootRequiredMessageConstant)
	ErrAPIKeyRequired      = errors.New(apiKeyRequiredMessageConstant)
	ErrRunHadFailures      = errors.New(runFailuresMessageConstant)
)

// ShellService bundles the command wrappers the batch run executes through.
type ShellService interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteAssistant(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// DescriptionClient resolves hosted repository metadata and updates the
// repository description after a refresh.
type DescriptionClient interface {
	ResolveRepoMetadata(executionContext context.Context, repository string) (githubcli.RepositoryMetadata, error)
	UpdateRepositoryDescription(executionContext context.Context, repository string, description string) error
}

// ServiceDependencies carries the collaborators a Service runs with.
type ServiceDependencies struct {
	Logger            *zap.Logger
	Executor          ShellService
	DescriptionClient DescriptionClient
	Output            io.Writer
	Clock             func() time.Time
}

// ServiceOptions configures one batch generation run.
type ServiceOptions struct {
	TargetsRoot         string
	APIKey              string
	Model               string
	Prompt              string
	CommitMessage       string
	LicenseText         string
	WorkerCount         int
	RetryCount          int
	TargetTimeout       time.Duration
	DryRun              bool
	Force               bool
	RefreshDescriptions bool
}

// Service executes the batch README regeneration run end to end: target
// discovery, run layout, the per-target workflow under the worker pool, the
// retry pass, and the final summary.
type Service struct {
	logger            *zap.Logger
	executor          ShellService
	descriptionClient DescriptionClient
	output            io.Writer
	clock             func() time.Time
	options           ServiceOptions
}

// NewService validates the collaborators and constructs a Service.
func NewService(dependencies ServiceDependencies, options ServiceOptions) (*Service, error) {
	if dependencies.Logger == nil || dependencies.Executor == nil {
		return nil, ErrDependenciesMissing
	}
	if len(strings.TrimSpace(options.TargetsRoot)) == 0 {
		return nil, ErrTargetsRootRequired
	}
	if !options.DryRun && len(strings.TrimSpace(options.APIKey)) == 0 {
		return nil, ErrAPIKeyRequired
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Clock == nil {
		dependencies.Clock = time.Now
	}
	return &Service{
		logger:            dependencies.Logger,
		executor:          dependencies.Executor,
		descriptionClient: dependencies.DescriptionClient,
		output:            dependencies.Output,
		clock:             dependencies.Clock,
		options:           options,
	}, nil
}

// Run performs the batch run and returns the aggregate summary. ErrRunHadFailures
// is returned when any target ends the run with a workflow or commit failure.
func (service *Service) Run(executionContext context.Context) (results.Summary, error) {
	discoverer := targets.NewDiscoverer(runstate.StateDirectoryName)
	targetList, discoveryError := discoverer.DiscoverTargets(service.options.TargetsRoot)
	if discoveryError != nil {
		return results.Summary{}, discoveryError
	}
	if len(targetList) == 0 {
		service.logger.Info(noTargetsLogMessageConstant)
		summary := results.SummarizeRecords(nil)
		service.printSummary(summary)
		return summary, nil
	}

	runIdentifier := runstate.NewRunIdentifier(service.clock())
	layout, layoutError := runstate.NewLayout(service.options.TargetsRoot, runIdentifier)
	if layoutError != nil {
		return results.Summary{}, layoutError
	}
	if !service.options.DryRun {
		if prepareError := layout.Prepare(); prepareError != nil {
			return results.Summary{}, fmt.Errorf(runLayoutErrorTemplateConstant, prepareError)
		}
	}

	service.logger.Info(
		runStartedLogMessageConstant,
		zap.String(runIdentifierLogFieldConstant, runIdentifier),
		zap.Int(targetCountLogFieldConstant, len(targetList)),
	)

	records, runError := service.runWorkflow(executionContext, layout, targetList)
	if runError != nil {
		return results.Summary{}, runError
	}

	if service.options.RefreshDescriptions && !service.options.DryRun {
		service.refreshDescriptions(executionContext, targetList, records)
	}

	summary, summaryError := service.summarize(layout, records)
	if summaryError != nil {
		return results.Summary{}, summaryError
	}
	service.printSummary(summary)

	if summary.FailureCount() > 0 {
		return summary, ErrRunHadFailures
	}
	return summary, nil
}

func (service *Service) runWorkflow(executionContext context.Context, layout runstate.Layout, targetList []targets.Target) ([]results.Record, error) {
	checkpointStore, storeError := checkpoint.NewStore(layout.CheckpointLogPath)
	if storeError != nil {
		return nil, fmt.Errorf(checkpointStoreErrorTemplate, storeError)
	}

	failureSet, failureSetError := runstate.NewFailureSet(layout.FailureSetPath)
	if failureSetError != nil {
		return nil, failureSetError
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(service.executor)
	if managerError != nil {
		return nil, managerError
	}

	var resultWriter workflow.ResultWriter
	if !service.options.DryRun {
		recordWriter, writerError := results.NewWriter(layout.ResultsDirectory)
		if writerError != nil {
			return nil, writerError
		}
		resultWriter = recordWriter
	}

	toolInvoker, invokerError := service.buildToolInvoker(layout)
	if invokerError != nil {
		return nil, invokerError
	}

	runner, runnerError := workflow.NewRunner(
		service.logger,
		checkpointStore,
		repositoryManager,
		toolInvoker,
		resultWriter,
		failureSet,
		workflow.NewBaselineProvisioner(service.options.LicenseText),
		workflow.RunnerOptions{
			Prompt:         service.options.Prompt,
			ToolIdentifier: service.toolIdentifier(),
			CommitMessage:  service.options.CommitMessage,
			Force:          service.options.Force,
			DryRun:         service.options.DryRun,
		},
	)
	if runnerError != nil {
		return nil, runnerError
	}

	progress := ui.NewBatchProgressLogger(service.logger)
	pool, poolError := scheduler.NewPool(runner, progress, scheduler.PoolOptions{
		WorkerCount:   service.options.WorkerCount,
		TargetTimeout: service.options.TargetTimeout,
	})
	if poolError != nil {
		return nil, poolError
	}

	coordinator, coordinatorError := scheduler.NewRetryCoordinator(pool, failureSet, progress)
	if coordinatorError != nil {
		return nil, coordinatorError
	}

	return coordinator.RunWithRetry(executionContext, targetList, service.options.RetryCount)
}

// buildToolInvoker returns the assistant invoker, or an inert one for dry runs
// so no assistant process is ever spawned.
func (service *Service) buildToolInvoker(layout runstate.Layout) (workflow.ToolInvoker, error) {
	if service.options.DryRun {
		return disabledToolInvoker{}, nil
	}
	return aitool.NewInvoker(service.executor, service.options.APIKey, service.options.Model, layout.LogsDirectory)
}

func (service *Service) toolIdentifier() string {
	selectedModel := strings.TrimSpace(service.options.Model)
	if len(selectedModel) == 0 {
		selectedModel = aitool.DefaultModel
	}
	return selectedModel
}

func (service *Service) summarize(layout runstate.Layout, records []results.Record) (results.Summary, error) {
	if service.options.DryRun {
		return results.SummarizeRecords(records), nil
	}
	reporter, reporterError := results.NewReporter(layout.ResultsDirectory)
	if reporterError != nil {
		return results.Summary{}, reporterError
	}
	return reporter.Summarize()
}

func (service *Service) printSummary(summary results.Summary) {
	fmt.Fprint(service.output, results.Render(summary)+summaryTrailingNewlineConstant)
}

// refreshDescriptions pushes a README-derived description to the hosted
// repository for every target that committed a regeneration. Failures are
// advisory and never affect the run outcome.
func (service *Service) refreshDescriptions(executionContext context.Context, targetList []targets.Target, records []results.Record) {
	if service.descriptionClient == nil {
		return
	}

	targetsByIdentifier := make(map[string]targets.Target, len(targetList))
	for _, candidateTarget := range targetList {
		targetsByIdentifier[candidateTarget.Identifier] = candidateTarget
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(service.executor)
	if managerError != nil {
		return
	}

	for _, record := range records {
		if record.WorkflowStatus != results.WorkflowStatusRanOK || record.CommitStatus != results.CommitStatusCommitted {
			continue
		}
		refreshedTarget, targetKnown := targetsByIdentifier[record.TargetIdentifier]
		if !targetKnown {
			continue
		}
		if refreshError := service.refreshOneDescription(executionContext, repositoryManager, refreshedTarget); refreshError != nil {
			service.logger.Warn(
				descriptionRefreshFailedLogMessage,
				zap.String(targetLogFieldConstant, refreshedTarget.Identifier),
				zap.Error(refreshError),
			)
			continue
		}
		service.logger.Info(descriptionRefreshedLogMessage, zap.String(targetLogFieldConstant, refreshedTarget.Identifier))
	}
}

func (service *Service) refreshOneDescription(executionContext context.Context, repositoryManager *gitrepo.RepositoryManager, refreshedTarget targets.Target) error {
	description := leadParagraph(filepath.Join(refreshedTarget.Path, readmeLeadFileNameConstant))
	if len(description) == 0 {
		return nil
	}
	description = truncateDescription(description)

	remoteURL, remoteError := repositoryManager.RemoteURL(executionContext, refreshedTarget.Path)
	if remoteError != nil {
		return remoteError
	}
	ownerRepository, parseError := gitrepo.ParseOwnerRepository(remoteURL)
	if parseError != nil {
		return parseError
	}

	metadata, metadataError := service.descriptionClient.ResolveRepoMetadata(executionContext, ownerRepository)
	if metadataError != nil {
		return metadataError
	}
	if metadata.Description == description {
		return nil
	}
	canonicalRepository := metadata.NameWithOwner
	if len(canonicalRepository) == 0 {
		canonicalRepository = ownerRepository
	}

	return service.descriptionClient.UpdateRepositoryDescription(executionContext, canonicalRepository, description)
}

// leadParagraph extracts the first prose paragraph of a README, skipping
// headings and badge rows. A missing or heading-only README yields "".
func leadParagraph(readmePath string) string {
	readmeContents, readError := os.ReadFile(readmePath)
	if readError != nil {
		return ""
	}

	var paragraphLines []string
	for _, rawLine := range strings.Split(string(readmeContents), "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmedLine, headingLinePrefixConstant) || strings.HasPrefix(trimmedLine, badgeLinePrefixConstant) {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}
		paragraphLines = append(paragraphLines, trimmedLine)
	}
	return strings.Join(paragraphLines, leadParagraphLineSeparatorConstant)
}

func truncateDescription(description string) string {
	descriptionRunes := []rune(description)
	if len(descriptionRunes) <= descriptionMaximumLengthConstant {
		return description
	}
	trimmedRunes := descriptionRunes[:descriptionMaximumLengthConstant-truncatedDescriptionReserveConstant]
	return string(trimmedRunes) + truncatedDescriptionSuffixConstant
}

// disabledToolInvoker satisfies the runner's invoker dependency on dry runs,
// where the tool step is skipped before invocation could occur.
type disabledToolInvoker struct{}

func (disabledToolInvoker) Run(context.Context, aitool.Invocation) (aitool.Outcome, error) {
	return aitool.Outcome{}, nil
}
