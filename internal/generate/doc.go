// Package generate wires discovery, checkpointing, the per-target workflow, and the worker pool into one batch run.
package generate
