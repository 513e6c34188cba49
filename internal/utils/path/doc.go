// Package pathutils normalizes filesystem path inputs shared across commands.
package pathutils
