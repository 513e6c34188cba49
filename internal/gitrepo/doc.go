// Package gitrepo provides repository-level git operations built on the shared shell executor.
package gitrepo
