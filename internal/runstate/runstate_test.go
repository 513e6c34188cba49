package runstate_test

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/runstate"
)

const (
	testRunIdentifierConstant        = "run-20260102-030405-deadbeef"
	testRunIdentifierPatternConstant = `^run-\d{8}-\d{6}-[0-9a-f]{8}$`
	testFailedTargetConstant         = "alpha-service"
	testConcurrentRecorderCount      = 16
)

func TestNewRunIdentifierShape(testInstance *testing.T) {
	runIdentifier := runstate.NewRunIdentifier(time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC))
	require.Regexp(testInstance, regexp.MustCompile(testRunIdentifierPatternConstant), runIdentifier)
	require.Contains(testInstance, runIdentifier, "run-20260102-030405-")
}

func TestNewRunIdentifiersAreUnique(testInstance *testing.T) {
	now := time.Now()
	require.NotEqual(testInstance, runstate.NewRunIdentifier(now), runstate.NewRunIdentifier(now))
}

func TestNewLayoutComputesPaths(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()

	layout, layoutError := runstate.NewLayout(rootDirectory, testRunIdentifierConstant)
	require.NoError(testInstance, layoutError)

	expectedStateDirectory := filepath.Join(rootDirectory, runstate.StateDirectoryName)
	require.Equal(testInstance, expectedStateDirectory, layout.StateDirectory)
	require.Equal(testInstance, filepath.Join(expectedStateDirectory, runstate.CheckpointLogFileName), layout.CheckpointLogPath)

	expectedRunDirectory := filepath.Join(expectedStateDirectory, "runs", testRunIdentifierConstant)
	require.Equal(testInstance, filepath.Join(expectedRunDirectory, "logs"), layout.LogsDirectory)
	require.Equal(testInstance, filepath.Join(expectedRunDirectory, "results"), layout.ResultsDirectory)
	require.Equal(testInstance, filepath.Join(expectedRunDirectory, "tmp"), layout.TempDirectory)
	require.Equal(testInstance, filepath.Join(expectedRunDirectory, "tmp", "failed-targets.txt"), layout.FailureSetPath)
}

func TestNewLayoutRequiresRoot(testInstance *testing.T) {
	_, layoutError := runstate.NewLayout("   ", testRunIdentifierConstant)
	require.ErrorIs(testInstance, layoutError, runstate.ErrRootRequired)
}

func TestLayoutPrepareCreatesDirectories(testInstance *testing.T) {
	layout, layoutError := runstate.NewLayout(testInstance.TempDir(), testRunIdentifierConstant)
	require.NoError(testInstance, layoutError)
	require.NoError(testInstance, layout.Prepare())

	for _, directoryPath := range []string{layout.LogsDirectory, layout.ResultsDirectory, layout.TempDirectory} {
		directoryInfo, statError := os.Stat(directoryPath)
		require.NoError(testInstance, statError)
		require.True(testInstance, directoryInfo.IsDir())
	}
}

func newTestFailureSet(testInstance *testing.T) *runstate.FailureSet {
	failureSet, creationError := runstate.NewFailureSet(filepath.Join(testInstance.TempDir(), "failed-targets.txt"))
	require.NoError(testInstance, creationError)
	return failureSet
}

func TestFailureSetRecordAndRead(testInstance *testing.T) {
	failureSet := newTestFailureSet(testInstance)

	require.NoError(testInstance, failureSet.Record(testFailedTargetConstant))
	require.NoError(testInstance, failureSet.Record("beta-service"))
	require.NoError(testInstance, failureSet.Record(testFailedTargetConstant))
	require.NoError(testInstance, failureSet.Record("   "))

	failedTargets, readError := failureSet.FailedTargets()
	require.NoError(testInstance, readError)
	require.Equal(testInstance, []string{testFailedTargetConstant, "beta-service"}, failedTargets)
}

func TestFailureSetEmptyBeforeFirstRecord(testInstance *testing.T) {
	failureSet := newTestFailureSet(testInstance)

	failedTargets, readError := failureSet.FailedTargets()
	require.NoError(testInstance, readError)
	require.Empty(testInstance, failedTargets)
}

func TestFailureSetClear(testInstance *testing.T) {
	failureSet := newTestFailureSet(testInstance)

	require.NoError(testInstance, failureSet.Record(testFailedTargetConstant))
	require.NoError(testInstance, failureSet.Clear())
	require.NoError(testInstance, failureSet.Clear())

	failedTargets, readError := failureSet.FailedTargets()
	require.NoError(testInstance, readError)
	require.Empty(testInstance, failedTargets)
}

func TestFailureSetConcurrentRecorders(testInstance *testing.T) {
	failureSet := newTestFailureSet(testInstance)

	recordErrors := make(chan error, testConcurrentRecorderCount)
	var waitGroup sync.WaitGroup
	for recorderIndex := 0; recorderIndex < testConcurrentRecorderCount; recorderIndex++ {
		waitGroup.Add(1)
		go func(recorderNumber int) {
			defer waitGroup.Done()
			recordErrors <- failureSet.Record(fmt.Sprintf("target-%02d", recorderNumber))
		}(recorderIndex)
	}
	waitGroup.Wait()
	close(recordErrors)
	for recordError := range recordErrors {
		require.NoError(testInstance, recordError)
	}

	failedTargets, readError := failureSet.FailedTargets()
	require.NoError(testInstance, readError)
	require.Len(testInstance, failedTargets, testConcurrentRecorderCount)
}
