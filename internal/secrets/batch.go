package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/runstate"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/scheduler"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/ui"
)

const (
	batchDependenciesMissingMessage   = "scan service dependencies not configured"
	batchRootRequiredMessageConstant  = "targets root required"
	findingsDetectedMessageConstant   = "scan run detected findings or failures"
	scanRunLayoutErrorTemplate        = "preparing scan run layout: %w"
	scanFailureExitCodeConstant       = 1
	batchSummaryTrailingNewline       = "\n"
	scanTargetLogFieldConstant        = "target"
	scanRuleLogFieldConstant          = "rule"
	scanFileLogFieldConstant          = "file"
	scanLineLogFieldConstant          = "line"
	secretFindingLogMessageConstant   = "secret finding"
	scanFailedLogMessageConstant      = "secret scan failed"
	scanResultWriteLogMessageConstant = "scan result record write failed"
)

// Sentinel errors reported by the scan service.
var (
	ErrBatchDependenciesMissing = errors.New(batchDependenciesMissingMessage)
	ErrBatchRootRequired        = errors.New(batchRootRequiredMessageConstant)
	ErrFindingsDetected         = errors.New(findingsDetectedMessageConstant)
)

// TargetScanner is the per-target scan operation the batch processor drives.
type TargetScanner interface {
	Scan(executionContext context.Context, targetIdentifier string, targetPath string) ([]Finding, error)
}

// BatchProcessor scans one target per invocation. Findings degrade the
// target's result record; there is no commit phase.
type BatchProcessor struct {
	logger       *zap.Logger
	scanner      TargetScanner
	resultWriter *results.Writer
	currentTime  func() time.Time
}

// NewBatchProcessor constructs a BatchProcessor. The result writer may be nil,
// in which case records stay in memory only.
func NewBatchProcessor(logger *zap.Logger, scanner TargetScanner, resultWriter *results.Writer) (*BatchProcessor, error) {
	if logger == nil || scanner == nil {
		return nil, ErrBatchDependenciesMissing
	}
	return &BatchProcessor{logger: logger, scanner: scanner, resultWriter: resultWriter, currentTime: time.Now}, nil
}

// ProcessTarget scans one target and records its outcome. A target with
// findings or a failed scan ends as ran-fail with exit code one.
func (processor *BatchProcessor) ProcessTarget(executionContext context.Context, target targets.Target) (results.Record, error) {
	startedAt := processor.currentTime()
	record := results.Record{TargetIdentifier: target.Identifier, CommitStatus: results.CommitStatusSkipped}

	findings, scanError := processor.scanner.Scan(executionContext, target.Identifier, target.Path)
	switch {
	case scanError != nil:
		processor.logger.Warn(scanFailedLogMessageConstant, zap.String(scanTargetLogFieldConstant, target.Identifier), zap.Error(scanError))
		record.WorkflowStatus = results.WorkflowStatusRanFail
		record.ExitCode = scanFailureExitCodeConstant
	case len(findings) > 0:
		processor.logFindings(target.Identifier, findings)
		record.WorkflowStatus = results.WorkflowStatusRanFail
		record.ExitCode = scanFailureExitCodeConstant
	default:
		record.WorkflowStatus = results.WorkflowStatusRanOK
	}

	record.DurationSeconds = int(processor.currentTime().Sub(startedAt).Seconds())
	if processor.resultWriter != nil {
		if writeError := processor.resultWriter.Write(record); writeError != nil {
			processor.logger.Warn(scanResultWriteLogMessageConstant, zap.String(scanTargetLogFieldConstant, target.Identifier), zap.Error(writeError))
		}
	}
	return record, nil
}

func (processor *BatchProcessor) logFindings(targetIdentifier string, findings []Finding) {
	for _, finding := range findings {
		processor.logger.Warn(
			secretFindingLogMessageConstant,
			zap.String(scanTargetLogFieldConstant, targetIdentifier),
			zap.String(scanRuleLogFieldConstant, finding.RuleID),
			zap.String(scanFileLogFieldConstant, finding.File),
			zap.Int(scanLineLogFieldConstant, finding.StartLine),
		)
	}
}

// BatchServiceDependencies carries the collaborators a scan run needs.
type BatchServiceDependencies struct {
	Logger   *zap.Logger
	Executor ScannerExecutor
	Output   io.Writer
	Clock    func() time.Time
}

// BatchServiceOptions configures one batch scan run.
type BatchServiceOptions struct {
	TargetsRoot   string
	WorkerCount   int
	TargetTimeout time.Duration
}

// BatchService scans every discovered target under the worker pool. Reports
// land in the run temp directory and result records in the run results
// directory; the summary is read back from those records.
type BatchService struct {
	logger   *zap.Logger
	executor ScannerExecutor
	output   io.Writer
	clock    func() time.Time
	options  BatchServiceOptions
}

// NewBatchService validates the collaborators and constructs a BatchService.
func NewBatchService(dependencies BatchServiceDependencies, options BatchServiceOptions) (*BatchService, error) {
	if dependencies.Logger == nil || dependencies.Executor == nil {
		return nil, ErrBatchDependenciesMissing
	}
	if len(strings.TrimSpace(options.TargetsRoot)) == 0 {
		return nil, ErrBatchRootRequired
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Clock == nil {
		dependencies.Clock = time.Now
	}
	return &BatchService{
		logger:   dependencies.Logger,
		executor: dependencies.Executor,
		output:   dependencies.Output,
		clock:    dependencies.Clock,
		options:  options,
	}, nil
}

// Run scans every discovered target and returns the aggregate summary.
// ErrFindingsDetected is returned when any target had findings or failed.
func (service *BatchService) Run(executionContext context.Context) (results.Summary, error) {
	discoverer := targets.NewDiscoverer(runstate.StateDirectoryName)
	targetList, discoveryError := discoverer.DiscoverTargets(service.options.TargetsRoot)
	if discoveryError != nil {
		return results.Summary{}, discoveryError
	}
	if len(targetList) == 0 {
		summary := results.SummarizeRecords(nil)
		fmt.Fprint(service.output, results.Render(summary)+batchSummaryTrailingNewline)
		return summary, nil
	}

	runIdentifier := runstate.NewRunIdentifier(service.clock())
	layout, layoutError := runstate.NewLayout(service.options.TargetsRoot, runIdentifier)
	if layoutError != nil {
		return results.Summary{}, layoutError
	}
	if prepareError := layout.Prepare(); prepareError != nil {
		return results.Summary{}, fmt.Errorf(scanRunLayoutErrorTemplate, prepareError)
	}

	scanner, scannerError := NewScanner(service.executor, layout.TempDirectory)
	if scannerError != nil {
		return results.Summary{}, scannerError
	}
	resultWriter, writerError := results.NewWriter(layout.ResultsDirectory)
	if writerError != nil {
		return results.Summary{}, writerError
	}
	processor, processorError := NewBatchProcessor(service.logger, scanner, resultWriter)
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

	if _, runError := pool.Run(executionContext, targetList); runError != nil {
		return results.Summary{}, runError
	}

	reporter, reporterError := results.NewReporter(layout.ResultsDirectory)
	if reporterError != nil {
		return results.Summary{}, reporterError
	}
	summary, summarizeError := reporter.Summarize()
	if summarizeError != nil {
		return results.Summary{}, summarizeError
	}

	fmt.Fprint(service.output, results.Render(summary)+batchSummaryTrailingNewline)

	if summary.FailureCount() > 0 {
		return summary, ErrFindingsDetected
	}
	return summary, nil
}
