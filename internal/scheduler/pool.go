package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/results"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/ui"
)

const (
	// DefaultTargetTimeout bounds one target's workflow wall-clock time.
	DefaultTargetTimeout = 300 * time.Second

	minimumWorkerCountConstant    = 1
	processorNotConfiguredMessage = "scheduler target processor not configured"
)

// ErrProcessorNotConfigured indicates the pool was constructed without a processor.
var ErrProcessorNotConfigured = errors.New(processorNotConfiguredMessage)

// TargetProcessor executes one target's workflow to completion.
type TargetProcessor interface {
	ProcessTarget(executionContext context.Context, target targets.Target) (results.Record, error)
}

// PoolOptions configures the worker pool.
type PoolOptions struct {
	WorkerCount   int
	TargetTimeout time.Duration
}

// Pool runs the processor over a target set under a concurrency bound. Each
// target is wrapped in its own timeout; the pool itself never retries.
type Pool struct {
	processor TargetProcessor
	progress  *ui.BatchProgressLogger
	options   PoolOptions
}

// NewPool constructs a Pool, normalizing the worker count to at least one
// (defaulting to the detected CPU count) and the timeout to the default.
func NewPool(processor TargetProcessor, progress *ui.BatchProgressLogger, options PoolOptions) (*Pool, error) {
	if processor == nil {
		return nil, ErrProcessorNotConfigured
	}
	if options.WorkerCount < minimumWorkerCountConstant {
		options.WorkerCount = runtime.NumCPU()
		if options.WorkerCount < minimumWorkerCountConstant {
			options.WorkerCount = minimumWorkerCountConstant
		}
	}
	if options.TargetTimeout <= 0 {
		options.TargetTimeout = DefaultTargetTimeout
	}
	return &Pool{processor: processor, progress: progress, options: options}, nil
}

// Run fans the target list out to the pool and returns every produced result
// record. A processor error is fatal: it cancels outstanding workers and
// propagates.
func (pool *Pool) Run(executionContext context.Context, targetList []targets.Target) ([]results.Record, error) {
	workerGroup, groupContext := errgroup.WithContext(executionContext)
	workerGroup.SetLimit(pool.options.WorkerCount)

	var recordsMutex sync.Mutex
	producedRecords := make([]results.Record, 0, len(targetList))

	for _, currentTarget := range targetList {
		scheduledTarget := currentTarget
		workerGroup.Go(func() error {
			pool.progress.TargetStarted(scheduledTarget.Identifier)

			targetContext, cancelTarget := context.WithTimeout(groupContext, pool.options.TargetTimeout)
			defer cancelTarget()

			record, processError := pool.processor.ProcessTarget(targetContext, scheduledTarget)
			if processError != nil {
				return processError
			}

			pool.progress.TargetFinished(scheduledTarget.Identifier, string(record.WorkflowStatus), string(record.CommitStatus))

			recordsMutex.Lock()
			producedRecords = append(producedRecords, record)
			recordsMutex.Unlock()
			return nil
		})
	}

	if waitError := workerGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	return producedRecords, nil
}
