package scheduler

import (
	"context"
	"errors"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/ui"
)

const poolNotConfiguredMessageConstant = "retry coordinator pool not configured"

// ErrPoolNotConfigured indicates the coordinator was constructed without a pool.
var ErrPoolNotConfigured = errors.New(poolNotConfiguredMessageConstant)

// FailureSource exposes the run's failure set to the retry coordinator.
type FailureSource interface {
	FailedTargets() ([]string, error)
	Clear() error
}

// RetryCoordinator performs the main scheduling pass and, when configured, one
// retry pass over the targets that failed. One pass is performed regardless of
// how high the retry count is set.
type RetryCoordinator struct {
	pool     *Pool
	failures FailureSource
	progress *ui.BatchProgressLogger
}

// NewRetryCoordinator constructs a RetryCoordinator over the pool and failure set.
func NewRetryCoordinator(pool *Pool, failures FailureSource, progress *ui.BatchProgressLogger) (*RetryCoordinator, error) {
	if pool == nil {
		return nil, ErrPoolNotConfigured
	}
	return &RetryCoordinator{pool: pool, failures: failures, progress: progress}, nil
}

// RunWithRetry runs the main pass and one optional retry pass, returning the
// final per-target records with retried targets overwriting their first-pass
// entries. The failure set is cleared after the retry pass consumes it.
func (coordinator *RetryCoordinator) RunWithRetry(executionContext context.Context, targetList []targets.Target, retryCount int) ([]results.Record, error) {
	mainPassRecords, mainPassError := coordinator.pool.Run(executionContext, targetList)
	if mainPassError != nil {
		return nil, mainPassError
	}
	if retryCount <= 0 || coordinator.failures == nil {
		return mainPassRecords, nil
	}

	failedIdentifiers, failureReadError := coordinator.failures.FailedTargets()
	if failureReadError != nil {
		return nil, failureReadError
	}
	if len(failedIdentifiers) == 0 {
		return mainPassRecords, nil
	}

	retryTargets := selectTargetsByIdentifier(targetList, failedIdentifiers)
	coordinator.progress.RetryPassStarted(len(retryTargets))

	retryPassRecords, retryPassError := coordinator.pool.Run(executionContext, retryTargets)
	if retryPassError != nil {
		return nil, retryPassError
	}
	if clearError := coordinator.failures.Clear(); clearError != nil {
		return nil, clearError
	}

	return mergeRecords(mainPassRecords, retryPassRecords), nil
}

func selectTargetsByIdentifier(targetList []targets.Target, identifiers []string) []targets.Target {
	wantedIdentifiers := make(map[string]bool, len(identifiers))
	for _, identifier := range identifiers {
		wantedIdentifiers[identifier] = true
	}

	selectedTargets := make([]targets.Target, 0, len(identifiers))
	for _, candidateTarget := range targetList {
		if wantedIdentifiers[candidateTarget.Identifier] {
			selectedTargets = append(selectedTargets, candidateTarget)
		}
	}
	return selectedTargets
}

func mergeRecords(mainPassRecords []results.Record, retryPassRecords []results.Record) []results.Record {
	retriedRecords := make(map[string]results.Record, len(retryPassRecords))
	for _, retryRecord := range retryPassRecords {
		retriedRecords[retryRecord.TargetIdentifier] = retryRecord
	}

	mergedRecords := make([]results.Record, 0, len(mainPassRecords))
	for _, mainRecord := range mainPassRecords {
		if retryRecord, retried := retriedRecords[mainRecord.TargetIdentifier]; retried {
			mergedRecords = append(mergedRecords, retryRecord)
			continue
		}
		mergedRecords = append(mergedRecords, mainRecord)
	}
	return mergedRecords
}
