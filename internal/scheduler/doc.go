// Package scheduler fans targets out to a bounded worker pool and coordinates the retry pass.
package scheduler
