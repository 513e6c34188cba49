// Package runstate manages per-run on-disk state: run identifiers, directory layout, and the failure set.
package runstate
