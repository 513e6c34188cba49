// Package results persists per-target result records and aggregates them into the run summary.
package results
