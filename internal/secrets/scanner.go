package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/execshell"
)

const (
	detectSubcommandConstant   = "detect"
	noBannerFlagConstant       = "--no-banner"
	sourceFlagConstant         = "--source"
	reportFormatFlagConstant   = "--report-format"
	reportFormatJSONConstant   = "json"
	reportPathFlagConstant     = "--report-path"
	reportFileTemplateConstant = "%s-findings.json"
	findingsExitCodeConstant   = 1

	executorNotConfiguredMessage = "secret scanner executor not configured"
	targetPathRequiredMessage    = "secret scanner target path required"
	reportDecodeFailureTemplate  = "decoding scanner report for %s: %w"
	reportReadFailureTemplate    = "reading scanner report for %s: %w"
	scanFailureTemplateConstant  = "scanner failed for %s with exit code %d"
)

// Sentinel errors reported by the scanner service.
var (
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)
	ErrTargetPathRequired    = errors.New(targetPathRequiredMessage)
)

// Finding is one secret detection reported by the scanner.
type Finding struct {
	RuleID      string `json:"RuleID"`
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	Secret      string `json:"Secret"`
}

// ScanFailedError reports a scanner invocation that exited with an unexpected code.
type ScanFailedError struct {
	TargetIdentifier string
	ExitCode         int
}

// Error describes the scan failure.
func (scanError ScanFailedError) Error() string {
	return fmt.Sprintf(scanFailureTemplateConstant, scanError.TargetIdentifier, scanError.ExitCode)
}

// ScannerExecutor is the subset of execshell.ShellExecutor the scanner service needs.
type ScannerExecutor interface {
	ExecuteScanner(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Scanner invokes the secret scanner per target and decodes the JSON report.
type Scanner struct {
	executor      ScannerExecutor
	tempDirectory string
}

// NewScanner constructs a Scanner writing reports into the run temp directory.
func NewScanner(executor ScannerExecutor, tempDirectory string) (*Scanner, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Scanner{executor: executor, tempDirectory: tempDirectory}, nil
}

// Scan runs the scanner against one target working tree. An exit code of one
// means findings were detected and is not an error; other non-zero codes are.
func (scanner *Scanner) Scan(executionContext context.Context, targetIdentifier string, targetPath string) ([]Finding, error) {
	if len(strings.TrimSpace(targetPath)) == 0 {
		return nil, ErrTargetPathRequired
	}

	reportPath := filepath.Join(scanner.tempDirectory, fmt.Sprintf(reportFileTemplateConstant, targetIdentifier))
	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			detectSubcommandConstant,
			noBannerFlagConstant,
			sourceFlagConstant,
			targetPath,
			reportFormatFlagConstant,
			reportFormatJSONConstant,
			reportPathFlagConstant,
			reportPath,
		},
	}

	_, executionError := scanner.executor.ExecuteScanner(executionContext, commandDetails)
	if executionError != nil {
		failedError := execshell.CommandFailedError{}
		if !errors.As(executionError, &failedError) {
			return nil, executionError
		}
		if failedError.Result.ExitCode != findingsExitCodeConstant {
			return nil, ScanFailedError{TargetIdentifier: targetIdentifier, ExitCode: failedError.Result.ExitCode}
		}
	}

	return scanner.decodeReport(targetIdentifier, reportPath)
}

func (scanner *Scanner) decodeReport(targetIdentifier string, reportPath string) ([]Finding, error) {
	reportContents, readError := os.ReadFile(reportPath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(reportReadFailureTemplate, targetIdentifier, readError)
	}

	var findings []Finding
	if decodeError := json.Unmarshal(reportContents, &findings); decodeError != nil {
		return nil, fmt.Errorf(reportDecodeFailureTemplate, targetIdentifier, decodeError)
	}
	return findings, nil
}
