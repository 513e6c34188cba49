package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/aitool"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/checkpoint"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
)

const (
	timeoutExitCodeConstant        = 124
	genericFailureExitCodeConstant = 1
	toolRanNoteConstant            = "tool ran"
	checkpointSkipNoteConstant     = "checkpoint skip"
	toolFailedNoteConstant         = "tool failed"
	defaultCommitMessageConstant   = "Regenerate README"

	runnerDependenciesMissingMessage = "workflow runner dependencies not configured"

	targetLogFieldConstant          = "target"
	workflowStatusLogFieldConstant  = "workflow_status"
	commitStatusLogFieldConstant    = "commit_status"
	setupFailedLogMessageConstant   = "target setup failed"
	fixupAppliedLogMessageConstant  = "transcript fixup applied"
	resultWriteLogMessageConstant   = "result record write failed"
	failureRecordLogMessageConstant = "failure set record failed"
)

// ErrRunnerDependenciesMissing indicates the runner was constructed without a required collaborator.
var ErrRunnerDependenciesMissing = errors.New(runnerDependenciesMissingMessage)

// CheckpointStore is the subset of the checkpoint store the runner consults.
type CheckpointStore interface {
	Append(record checkpoint.Record) error
	LastStatus(targetIdentifier string) (string, error)
}

// RepositoryService exposes the git operations the runner performs per target.
type RepositoryService interface {
	IsGitRepository(executionContext context.Context, repositoryPath string) (bool, error)
	HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error)
	StageAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, commitMessage string) error
}

// ToolInvoker runs the external editing tool for one target.
type ToolInvoker interface {
	Run(executionContext context.Context, invocation aitool.Invocation) (aitool.Outcome, error)
}

// ResultWriter persists one result record per target.
type ResultWriter interface {
	Write(record results.Record) error
}

// FailureRecorder collects targets whose workflow failed in the current pass.
type FailureRecorder interface {
	Record(targetIdentifier string) error
}

// RunnerOptions configures one Runner instance.
type RunnerOptions struct {
	Prompt         string
	ToolIdentifier string
	CommitMessage  string
	Force          bool
	DryRun         bool
}

// Runner executes the per-target state machine. Errors returned from
// ProcessTarget are checkpoint-store I/O failures and are fatal to the run;
// every other failure degrades the target's result record instead.
type Runner struct {
	logger       *zap.Logger
	checkpoints  CheckpointStore
	repository   RepositoryService
	tool         ToolInvoker
	resultWriter ResultWriter
	failureSet   FailureRecorder
	provisioner  *BaselineProvisioner
	options      RunnerOptions
	currentTime  func() time.Time
}

// NewRunner constructs a Runner from its collaborators.
func NewRunner(
	logger *zap.Logger,
	checkpoints CheckpointStore,
	repository RepositoryService,
	tool ToolInvoker,
	resultWriter ResultWriter,
	failureSet FailureRecorder,
	provisioner *BaselineProvisioner,
	options RunnerOptions,
) (*Runner, error) {
	if logger == nil || checkpoints == nil || repository == nil || tool == nil || failureSet == nil || provisioner == nil {
		return nil, ErrRunnerDependenciesMissing
	}
	if len(strings.TrimSpace(options.CommitMessage)) == 0 {
		options.CommitMessage = defaultCommitMessageConstant
	}
	if len(strings.TrimSpace(options.Prompt)) == 0 {
		options.Prompt = aitool.DefaultPrompt()
	}
	return &Runner{
		logger:       logger,
		checkpoints:  checkpoints,
		repository:   repository,
		tool:         tool,
		resultWriter: resultWriter,
		failureSet:   failureSet,
		provisioner:  provisioner,
		options:      options,
		currentTime:  time.Now,
	}, nil
}

// ProcessTarget drives one target through the state machine and returns its result record.
func (runner *Runner) ProcessTarget(executionContext context.Context, target targets.Target) (results.Record, error) {
	startedAt := runner.currentTime()
	record := results.Record{TargetIdentifier: target.Identifier}

	isRepository, repositoryCheckError := runner.repository.IsGitRepository(executionContext, target.Path)
	if repositoryCheckError != nil {
		return runner.finishFailed(record, startedAt, genericFailureExitCodeConstant)
	}
	if !isRepository {
		record.WorkflowStatus = results.WorkflowStatusSkippedNonTarget
		record.CommitStatus = results.CommitStatusSkipped
		return runner.finish(record, startedAt)
	}

	if !runner.options.DryRun {
		if setupError := runner.provisioner.EnsureBaseline(target.Path); setupError != nil {
			runner.logger.Warn(setupFailedLogMessageConstant, zap.String(targetLogFieldConstant, target.Identifier), zap.Error(setupError))
			return runner.finishFailed(record, startedAt, genericFailureExitCodeConstant)
		}
	}

	lastStatus, lookupError := runner.checkpoints.LastStatus(target.Identifier)
	if lookupError != nil {
		return results.Record{}, lookupError
	}

	toolRan := false
	if lastStatus == checkpoint.StatusSucceeded && !runner.options.Force {
		record.WorkflowStatus = results.WorkflowStatusSkippedOK
	} else {
		record.WorkflowStatus = results.WorkflowStatusRanOK
		if !runner.options.DryRun {
			toolRan = true
			toolExitCode, toolError := runner.runTool(executionContext, target)
			if toolError != nil || toolExitCode != 0 {
				return runner.finishFailed(record, startedAt, toolExitCode)
			}
		}
	}

	record.CommitStatus = runner.attemptCommit(executionContext, target)

	if !runner.options.DryRun {
		checkpointNote := checkpointSkipNoteConstant
		if toolRan {
			checkpointNote = toolRanNoteConstant
		}
		appendError := runner.checkpoints.Append(checkpoint.Record{
			TargetIdentifier: target.Identifier,
			Status:           checkpoint.StatusSucceeded,
			Timestamp:        runner.currentTime(),
			DurationSeconds:  int(runner.currentTime().Sub(startedAt).Seconds()),
			ToolIdentifier:   runner.options.ToolIdentifier,
			Note:             checkpointNote,
		})
		if appendError != nil {
			return results.Record{}, appendError
		}
	}

	return runner.finish(record, startedAt)
}

// runTool invokes the external tool and applies the verify/fixup step. The
// returned exit code is non-zero for tool failures, including timeouts.
func (runner *Runner) runTool(executionContext context.Context, target targets.Target) (int, error) {
	readmePath := filepath.Join(target.Path, readmeFileNameConstant)
	fingerprintBefore, fingerprintError := ArtifactFingerprint(readmePath)
	if fingerprintError != nil {
		return genericFailureExitCodeConstant, fingerprintError
	}

	toolOutcome, toolError := runner.tool.Run(executionContext, aitool.Invocation{
		TargetIdentifier: target.Identifier,
		WorkingDirectory: target.Path,
		Prompt:           runner.options.Prompt,
	})
	if toolError != nil {
		if errors.Is(executionContext.Err(), context.DeadlineExceeded) {
			return timeoutExitCodeConstant, toolError
		}
		return genericFailureExitCodeConstant, toolError
	}
	if toolOutcome.ExitCode != 0 {
		return toolOutcome.ExitCode, nil
	}

	fingerprintAfter, fingerprintError := ArtifactFingerprint(readmePath)
	if fingerprintError != nil {
		return genericFailureExitCodeConstant, fingerprintError
	}
	if fingerprintBefore == fingerprintAfter {
		runner.applyFixup(target, readmePath, toolOutcome.TranscriptPath)
	}
	return 0, nil
}

// applyFixup is advisory self-repair: absence of extractable content leaves the artifact unchanged.
func (runner *Runner) applyFixup(target targets.Target, readmePath string, transcriptPath string) {
	if len(transcriptPath) == 0 {
		return
	}
	transcriptContents, readError := os.ReadFile(transcriptPath)
	if readError != nil {
		return
	}
	candidateContents := ExtractCandidateFromTranscript(string(transcriptContents))
	repaired, repairError := RepairArtifact(readmePath, candidateContents)
	if repairError == nil && repaired {
		runner.logger.Info(fixupAppliedLogMessageConstant, zap.String(targetLogFieldConstant, target.Identifier))
	}
}

func (runner *Runner) attemptCommit(executionContext context.Context, target targets.Target) results.CommitStatus {
	if runner.options.DryRun {
		return results.CommitStatusDryRun
	}

	if stageError := runner.repository.StageAll(executionContext, target.Path); stageError != nil {
		return results.CommitStatusCommitFailed
	}

	hasChanges, statusError := runner.repository.HasWorkingTreeChanges(executionContext, target.Path)
	if statusError != nil {
		return results.CommitStatusCommitFailed
	}
	if !hasChanges {
		return results.CommitStatusNoChanges
	}

	if commitError := runner.repository.Commit(executionContext, target.Path, runner.options.CommitMessage); commitError != nil {
		return results.CommitStatusCommitFailed
	}
	return results.CommitStatusCommitted
}

// finishFailed records a workflow failure: failure set entry, failure
// checkpoint, and the degraded result record. Checkpoint append errors are
// fatal and propagate.
func (runner *Runner) finishFailed(record results.Record, startedAt time.Time, exitCode int) (results.Record, error) {
	record.WorkflowStatus = results.WorkflowStatusRanFail
	record.ExitCode = exitCode
	record.CommitStatus = results.CommitStatusSkipped

	if runner.options.DryRun {
		return runner.finish(record, startedAt)
	}

	if recordError := runner.failureSet.Record(record.TargetIdentifier); recordError != nil {
		runner.logger.Warn(failureRecordLogMessageConstant, zap.String(targetLogFieldConstant, record.TargetIdentifier), zap.Error(recordError))
	}

	appendError := runner.checkpoints.Append(checkpoint.Record{
		TargetIdentifier: record.TargetIdentifier,
		Status:           checkpoint.StatusFailed,
		Timestamp:        runner.currentTime(),
		DurationSeconds:  int(runner.currentTime().Sub(startedAt).Seconds()),
		ExitCode:         exitCode,
		ToolIdentifier:   runner.options.ToolIdentifier,
		Note:             toolFailedNoteConstant,
	})
	if appendError != nil {
		return results.Record{}, appendError
	}

	return runner.finish(record, startedAt)
}

func (runner *Runner) finish(record results.Record, startedAt time.Time) (results.Record, error) {
	record.DurationSeconds = int(runner.currentTime().Sub(startedAt).Seconds())

	runner.logger.Debug(
		workflowStatusLogFieldConstant,
		zap.String(targetLogFieldConstant, record.TargetIdentifier),
		zap.String(workflowStatusLogFieldConstant, string(record.WorkflowStatus)),
		zap.String(commitStatusLogFieldConstant, string(record.CommitStatus)),
	)

	if runner.options.DryRun || runner.resultWriter == nil {
		return record, nil
	}
	if writeError := runner.resultWriter.Write(record); writeError != nil {
		runner.logger.Warn(resultWriteLogMessageConstant, zap.String(targetLogFieldConstant, record.TargetIdentifier), zap.Error(writeError))
	}
	return record, nil
}
