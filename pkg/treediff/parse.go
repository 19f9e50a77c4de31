package treediff

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Sumatoshi-tech/topicdelta/pkg/units"
)

// Line prefixes of the diff normal-format grammar for directory comparisons.
const (
	prefixFileHeader = "diff"
	prefixOnlyIn     = "Only in "
	markerAdded      = '>'
	markerDeleted    = '<'
	changeTextOffset = 2
	maxDiffLineBytes = 64 * units.MiB
)

// ParseDiffOutput parses the output of "diff [-w] prev/ cur/" into a Result.
//
// A "diff ..." header opens a block for the document named by the suffix
// after its final slash. "> " lines are additions and "< " lines deletions
// of that document. "Only in <dir>: <name>" reports a whole document; <dir>
// up to its first slash must equal prevLabel (removal) or curLabel
// (addition), otherwise ErrUnattributedDocument is returned. Every other
// line is ignored.
func ParseDiffOutput(r io.Reader, prevLabel, curLabel string) (*Result, error) {
	result := &Result{}

	var current *DocumentDelta

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxDiffLineBytes)

	lineNo := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, prefixFileHeader):
			current = result.open(headerName(line))
		case line[0] == markerAdded || line[0] == markerDeleted:
			if current == nil {
				return nil, fmt.Errorf("line %d: %w: %q", lineNo, ErrOrphanChangeLine, line)
			}

			text := changeText(line)
			if line[0] == markerAdded {
				current.Additions = append(current.Additions, text)
			} else {
				current.Deletions = append(current.Deletions, text)
			}
		case strings.HasPrefix(line, prefixOnlyIn):
			err := attribute(result, line, prevLabel, curLabel)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read diff output: %w", err)
	}

	return result, nil
}

// headerName extracts the compared file name from "diff -w 0/a.cpp 1/a.cpp".
func headerName(line string) string {
	return line[strings.LastIndex(line, "/")+1:]
}

func changeText(line string) string {
	if len(line) < changeTextOffset {
		return ""
	}

	return line[changeTextOffset:]
}

// attribute records an "Only in <dir>: <name>" report as a whole-document
// addition or removal.
func attribute(result *Result, line, prevLabel, curLabel string) error {
	dir, name, ok := strings.Cut(strings.TrimPrefix(line, prefixOnlyIn), ": ")
	if !ok || name == "" {
		return fmt.Errorf("%w: %q", ErrUnattributedDocument, line)
	}

	label, _, _ := strings.Cut(dir, "/")

	switch label {
	case prevLabel:
		result.Removed = append(result.Removed, name)
	case curLabel:
		result.Added = append(result.Added, name)
	default:
		return fmt.Errorf("%w: %q", ErrUnattributedDocument, line)
	}

	return nil
}
