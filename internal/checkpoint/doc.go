// Package checkpoint persists per-target outcomes in an append-only log with last-write-wins lookup.
package checkpoint
