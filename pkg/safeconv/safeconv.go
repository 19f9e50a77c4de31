// Package safeconv provides checked integer conversions for byte and line counts.
package safeconv

// MustInt64ToUint64 converts int64 to uint64, panics if negative.
// Use only for sizes that cannot be negative, such as artifact byte totals.
func MustInt64ToUint64(v int64) uint64 {
	if v < 0 {
		panic("safeconv: negative int64 to uint64 conversion")
	}

	return uint64(v)
}
