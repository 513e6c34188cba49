package aitool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/execshell"
)

const (
	// DefaultModel is the assistant model used when no override is configured.
	DefaultModel = "claude-sonnet-4-5"

	printFlagConstant                  = "--print"
	modelFlagConstant                  = "--model"
	promptFlagConstant                 = "-p"
	apiKeyEnvironmentVariableConstant  = "ANTHROPIC_API_KEY"
	transcriptFileTemplateConstant     = "%s.log"
	transcriptFilePermissionsConstant  = 0o644
	transcriptSectionSeparatorConstant = "\n--- stderr ---\n"

	executorNotConfiguredMessage   = "ai tool executor not configured"
	apiKeyRequiredMessageConstant  = "ai tool api key required"
	promptRequiredMessageConstant  = "ai tool prompt required"
	transcriptWriteFailureTemplate = "writing transcript for %s: %w"

	defaultPromptConstant = "Read this repository and regenerate README.md so it accurately documents " +
		"the project: purpose, installation, usage, and configuration. Apply the edit " +
		"directly to README.md."
)

// Sentinel errors reported by the invoker.
var (
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)
	ErrAPIKeyRequired        = errors.New(apiKeyRequiredMessageConstant)
	ErrPromptRequired        = errors.New(promptRequiredMessageConstant)
)

// AssistantExecutor is the subset of execshell.ShellExecutor the invoker needs.
type AssistantExecutor interface {
	ExecuteAssistant(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Invocation describes one assistant run against a target working tree.
type Invocation struct {
	TargetIdentifier string
	WorkingDirectory string
	Prompt           string
}

// Outcome reports the observable results of an assistant run.
type Outcome struct {
	ExitCode       int
	TranscriptPath string
}

// Invoker runs the assistant in non-interactive print mode and persists transcripts.
type Invoker struct {
	executor      AssistantExecutor
	apiKey        string
	model         string
	logsDirectory string
}

// NewInvoker constructs an Invoker writing transcripts into the run logs directory.
func NewInvoker(executor AssistantExecutor, apiKey string, model string, logsDirectory string) (*Invoker, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if len(strings.TrimSpace(apiKey)) == 0 {
		return nil, ErrAPIKeyRequired
	}
	selectedModel := strings.TrimSpace(model)
	if len(selectedModel) == 0 {
		selectedModel = DefaultModel
	}
	return &Invoker{executor: executor, apiKey: apiKey, model: selectedModel, logsDirectory: logsDirectory}, nil
}

// Model returns the assistant model the invoker passes on every run.
func (invoker *Invoker) Model() string {
	return invoker.model
}

// DefaultPrompt returns the README regeneration prompt used when no override is configured.
func DefaultPrompt() string {
	return defaultPromptConstant
}

// Run invokes the assistant for one target. A non-zero assistant exit code is
// reported through the outcome, not as an error; errors mean the tool could not
// run or its transcript could not be persisted.
func (invoker *Invoker) Run(executionContext context.Context, invocation Invocation) (Outcome, error) {
	if len(strings.TrimSpace(invocation.Prompt)) == 0 {
		return Outcome{}, ErrPromptRequired
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			printFlagConstant,
			modelFlagConstant,
			invoker.model,
			promptFlagConstant,
			invocation.Prompt,
		},
		WorkingDirectory:     invocation.WorkingDirectory,
		EnvironmentVariables: map[string]string{apiKeyEnvironmentVariableConstant: invoker.apiKey},
	}

	executionResult, executionError := invoker.executor.ExecuteAssistant(executionContext, commandDetails)
	if executionError != nil {
		failedError := execshell.CommandFailedError{}
		if !errors.As(executionError, &failedError) {
			return Outcome{}, executionError
		}
		executionResult = failedError.Result
	}

	transcriptPath, transcriptError := invoker.writeTranscript(invocation.TargetIdentifier, executionResult)
	if transcriptError != nil {
		return Outcome{}, transcriptError
	}

	return Outcome{ExitCode: executionResult.ExitCode, TranscriptPath: transcriptPath}, nil
}

func (invoker *Invoker) writeTranscript(targetIdentifier string, executionResult execshell.ExecutionResult) (string, error) {
	if len(strings.TrimSpace(invoker.logsDirectory)) == 0 {
		return "", nil
	}

	transcriptContents := executionResult.StandardOutput
	if len(strings.TrimSpace(executionResult.StandardError)) > 0 {
		transcriptContents += transcriptSectionSeparatorConstant + executionResult.StandardError
	}

	transcriptPath := filepath.Join(invoker.logsDirectory, fmt.Sprintf(transcriptFileTemplateConstant, targetIdentifier))
	if writeError := os.WriteFile(transcriptPath, []byte(transcriptContents), transcriptFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(transcriptWriteFailureTemplate, targetIdentifier, writeError)
	}
	return transcriptPath, nil
}
