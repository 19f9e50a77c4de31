// Package units provides binary size multipliers (1024-based) for read windows and line limits.
package units

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
)
