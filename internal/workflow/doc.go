// Package workflow implements the per-target state machine: setup, checkpoint
// gate, tool invocation, verify/fixup, and commit attempt.
package workflow
