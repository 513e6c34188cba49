package aitool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/aitool"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/execshell"
)

const (
	testAPIKeyConstant           = "sk-test-key"
	testModelConstant            = "claude-sonnet-4-5"
	testTargetIdentifierConstant = "alpha-service"
	testPromptConstant           = "Regenerate the README for this repository."
	testTranscriptOutputConstant = "I updated README.md with the new overview."
)

type scriptedAssistantExecutor struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.CommandDetails
}

func (executor *scriptedAssistantExecutor) ExecuteAssistant(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	return executor.executionResult, executor.executionError
}

func TestNewInvokerValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		executor      aitool.AssistantExecutor
		apiKey        string
		expectedError error
	}{
		{
			name:          "missing_executor",
			executor:      nil,
			apiKey:        testAPIKeyConstant,
			expectedError: aitool.ErrExecutorNotConfigured,
		},
		{
			name:          "missing_api_key",
			executor:      &scriptedAssistantExecutor{},
			apiKey:        "   ",
			expectedError: aitool.ErrAPIKeyRequired,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			invoker, creationError := aitool.NewInvoker(testCase.executor, testCase.apiKey, testModelConstant, "")
			require.Nil(testInstance, invoker)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
		})
	}
}

func TestNewInvokerDefaultsModel(testInstance *testing.T) {
	invoker, creationError := aitool.NewInvoker(&scriptedAssistantExecutor{}, testAPIKeyConstant, "  ", "")
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, aitool.DefaultModel, invoker.Model())
}

func TestInvokerRunBuildsAssistantCommand(testInstance *testing.T) {
	logsDirectory := testInstance.TempDir()
	targetDirectory := testInstance.TempDir()
	executor := &scriptedAssistantExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testTranscriptOutputConstant}}

	invoker, creationError := aitool.NewInvoker(executor, testAPIKeyConstant, testModelConstant, logsDirectory)
	require.NoError(testInstance, creationError)

	outcome, runError := invoker.Run(context.Background(), aitool.Invocation{
		TargetIdentifier: testTargetIdentifierConstant,
		WorkingDirectory: targetDirectory,
		Prompt:           testPromptConstant,
	})
	require.NoError(testInstance, runError)
	require.Zero(testInstance, outcome.ExitCode)

	require.Len(testInstance, executor.recordedCommands, 1)
	recordedCommand := executor.recordedCommands[0]
	require.Equal(testInstance, []string{"--print", "--model", testModelConstant, "-p", testPromptConstant}, recordedCommand.Arguments)
	require.Equal(testInstance, targetDirectory, recordedCommand.WorkingDirectory)
	require.Equal(testInstance, testAPIKeyConstant, recordedCommand.EnvironmentVariables["ANTHROPIC_API_KEY"])

	expectedTranscriptPath := filepath.Join(logsDirectory, testTargetIdentifierConstant+".log")
	require.Equal(testInstance, expectedTranscriptPath, outcome.TranscriptPath)
	transcriptContents, readError := os.ReadFile(expectedTranscriptPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testTranscriptOutputConstant, string(transcriptContents))
}

func TestInvokerRunReportsNonZeroExitThroughOutcome(testInstance *testing.T) {
	failedResult := execshell.ExecutionResult{StandardError: "model overloaded", ExitCode: 1}
	executor := &scriptedAssistantExecutor{
		executionError: execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandAssistant},
			Result:  failedResult,
		},
	}

	invoker, creationError := aitool.NewInvoker(executor, testAPIKeyConstant, testModelConstant, testInstance.TempDir())
	require.NoError(testInstance, creationError)

	outcome, runError := invoker.Run(context.Background(), aitool.Invocation{
		TargetIdentifier: testTargetIdentifierConstant,
		Prompt:           testPromptConstant,
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, outcome.ExitCode)

	transcriptContents, readError := os.ReadFile(outcome.TranscriptPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(transcriptContents), "model overloaded")
}

func TestInvokerRunSurfacesExecutionFailures(testInstance *testing.T) {
	executor := &scriptedAssistantExecutor{
		executionError: execshell.CommandExecutionError{
			Command: execshell.ShellCommand{Name: execshell.CommandAssistant},
			Cause:   errors.New("binary not found"),
		},
	}

	invoker, creationError := aitool.NewInvoker(executor, testAPIKeyConstant, testModelConstant, "")
	require.NoError(testInstance, creationError)

	_, runError := invoker.Run(context.Background(), aitool.Invocation{Prompt: testPromptConstant})
	require.Error(testInstance, runError)
	require.IsType(testInstance, execshell.CommandExecutionError{}, runError)
}

func TestInvokerRunRequiresPrompt(testInstance *testing.T) {
	invoker, creationError := aitool.NewInvoker(&scriptedAssistantExecutor{}, testAPIKeyConstant, testModelConstant, "")
	require.NoError(testInstance, creationError)

	_, runError := invoker.Run(context.Background(), aitool.Invocation{Prompt: "  "})
	require.ErrorIs(testInstance, runError, aitool.ErrPromptRequired)
}
