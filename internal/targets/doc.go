// Package targets discovers candidate repository directories and derives stable identifiers for them.
package targets
