// Package textutil provides byte-level text utilities used when comparing
// document revisions: binary detection, line splitting and whitespace folding.
package textutil

import (
	"bytes"
	"strings"
	"unicode"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by diff, Git and most editors.
const BinarySniffLength = 8000

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// SplitLines splits data into lines without their terminating newline.
// A trailing newline does not produce an empty final line, so "a\nb\n"
// and "a\nb" both yield two lines. Returns nil for empty data.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}

	text := string(data)
	text = strings.TrimSuffix(text, "\n")

	return strings.Split(text, "\n")
}

// FoldWhitespace removes every whitespace rune from line. Two lines that
// fold to the same string are equal under whitespace-insensitive comparison.
func FoldWhitespace(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, line)
}
