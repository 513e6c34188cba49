// Package githubcli wraps the GitHub CLI for repository metadata lookups and profile updates.
package githubcli
