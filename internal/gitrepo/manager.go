package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/execshell"
)

const (
	gitRevParseSubcommandConstant     = "rev-parse"
	gitGitDirFlagConstant             = "--git-dir"
	gitAbbrevRefFlagConstant          = "--abbrev-ref"
	gitHeadReferenceConstant          = "HEAD"
	gitStatusSubcommandConstant       = "status"
	gitPorcelainFlagConstant          = "--porcelain"
	gitAddSubcommandConstant          = "add"
	gitAddAllFlagConstant             = "-A"
	gitCommitSubcommandConstant       = "commit"
	gitCommitMessageFlagConstant      = "-m"
	gitPushSubcommandConstant         = "push"
	gitRemoteSubcommandConstant       = "remote"
	gitRemoteGetURLSubcommandConstant = "get-url"
	originRemoteNameConstant          = "origin"

	executorNotConfiguredMessageConstant = "repository manager git executor not configured"
	repositoryPathRequiredMessage        = "repository path required"
	commitMessageRequiredMessage         = "commit message required"
)

// DetachedBranchName is reported by CurrentBranch when HEAD points at no branch.
const DetachedBranchName = "DETACHED"

// Sentinel errors reported by the repository manager.
var (
	ErrExecutorNotConfigured  = errors.New(executorNotConfiguredMessageConstant)
	ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessage)
	ErrCommitMessageRequired  = errors.New(commitMessageRequiredMessage)
)

// GitExecutor exposes the subset of shell execution used by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager performs git operations against a single working tree.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager backed by the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// IsGitRepository reports whether the provided path resides inside a git working tree.
func (manager *RepositoryManager) IsGitRepository(executionContext context.Context, repositoryPath string) (bool, error) {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return false, validationError
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitGitDirFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		failedError := execshell.CommandFailedError{}
		if errors.As(executionError, &failedError) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// HasWorkingTreeChanges reports whether the working tree contains staged or unstaged modifications.
func (manager *RepositoryManager) HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return false, validationError
	}
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return false, executionError
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// CurrentBranch returns the checked-out branch name, or DETACHED for a detached HEAD.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return "", validationError
	}
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	branchName := strings.TrimSpace(executionResult.StandardOutput)
	if branchName == gitHeadReferenceConstant {
		return DetachedBranchName, nil
	}
	return branchName, nil
}

// StageAll stages every modification in the working tree.
func (manager *RepositoryManager) StageAll(executionContext context.Context, repositoryPath string) error {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return validationError
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitAddSubcommandConstant, gitAddAllFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// Commit records the staged changes with the supplied message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return validationError
	}
	if len(strings.TrimSpace(commitMessage)) == 0 {
		return ErrCommitMessageRequired
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCommitSubcommandConstant, gitCommitMessageFlagConstant, commitMessage},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// Push publishes the current branch to the origin remote.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string) error {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return validationError
	}
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// RemoteURL returns the configured URL of the origin remote.
func (manager *RepositoryManager) RemoteURL(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := validateRepositoryPath(repositoryPath); validationError != nil {
		return "", validationError
	}
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, originRemoteNameConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

func validateRepositoryPath(repositoryPath string) error {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return ErrRepositoryPathRequired
	}
	return nil
}
