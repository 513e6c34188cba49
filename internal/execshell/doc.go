// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines abstractions used throughout
// readme-batch to run git, gh, the AI assistant, and the secret scanner in a
// testable manner.
package execshell
