package ui

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	targetStartedMessageTemplateConstant  = "START %s"
	targetFinishedMessageTemplateConstant = "DONE %s workflow=%s commit=%s"
	retryPassMessageTemplateConstant      = "RETRY pass over %d failed target(s)"
)

// BatchProgressLogger emits per-target START and DONE lines while a batch run progresses.
type BatchProgressLogger struct {
	logger *zap.Logger
}

// NewBatchProgressLogger constructs a progress logger backed by the provided zap logger.
func NewBatchProgressLogger(logger *zap.Logger) *BatchProgressLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProgressLogger{logger: logger}
}

// TargetStarted reports that processing of the named target has begun.
func (progressLogger *BatchProgressLogger) TargetStarted(targetName string) {
	if progressLogger == nil {
		return
	}
	progressLogger.logger.Info(fmt.Sprintf(targetStartedMessageTemplateConstant, targetName))
}

// TargetFinished reports the workflow and commit outcomes for the named target.
func (progressLogger *BatchProgressLogger) TargetFinished(targetName string, workflowStatus string, commitStatus string) {
	if progressLogger == nil {
		return
	}
	progressLogger.logger.Info(fmt.Sprintf(targetFinishedMessageTemplateConstant, targetName, workflowStatus, commitStatus))
}

// RetryPassStarted reports that the retry pass over previously failed targets has begun.
func (progressLogger *BatchProgressLogger) RetryPassStarted(failedTargetCount int) {
	if progressLogger == nil {
		return
	}
	progressLogger.logger.Info(fmt.Sprintf(retryPassMessageTemplateConstant, failedTargetCount))
}
