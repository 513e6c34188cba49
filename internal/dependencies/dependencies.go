// Package dependencies resolves shared collaborator instances for command builders.
package dependencies

import (
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/execshell"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/ui"
)

// ResolveShellExecutor constructs the OS-backed shell executor commands run
// through. Human-readable logging attaches the console event observer.
func ResolveShellExecutor(logger *zap.Logger, humanReadableLogging bool) (*execshell.ShellExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	commandRunner := execshell.NewOSCommandRunner()
	if humanReadableLogging {
		return execshell.NewShellExecutorWithObserver(logger, commandRunner, ui.NewConsoleCommandEventLogger(logger))
	}
	return execshell.NewShellExecutor(logger, commandRunner)
}
