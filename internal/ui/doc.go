// Package ui renders command lifecycle events and batch progress lines for interactive runs.
package ui
