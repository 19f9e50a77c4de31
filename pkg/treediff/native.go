package treediff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
	"github.com/Sumatoshi-tech/topicdelta/pkg/textutil"
)

// Native compares trees in-process with a line diff.
type Native struct {
	// IgnoreWhitespace matches lines after removing all whitespace.
	IgnoreWhitespace bool
	// Timeout bounds each document diff. On expiry diffmatchpatch returns a
	// valid but non-minimal diff, so artifacts may vary between runs.
	// Zero means no limit.
	Timeout time.Duration
}

// NewNative creates an in-process comparator.
func NewNative(ignoreWhitespace bool) *Native {
	return &Native{IgnoreWhitespace: ignoreWhitespace}
}

// Name implements Comparator.
func (n *Native) Name() string {
	return KindNative
}

// Compare implements Comparator. Documents are visited in sorted name order,
// the order diff reports them in.
func (n *Native) Compare(ctx context.Context, prevDir, curDir string) (*Result, error) {
	prevDocs, err := corpus.ListDocuments(prevDir)
	if err != nil {
		return nil, err
	}

	curDocs, err := corpus.ListDocuments(curDir)
	if err != nil {
		return nil, err
	}

	inPrev := toSet(prevDocs)
	inCur := toSet(curDocs)

	names := append(slices.Clone(prevDocs), curDocs...)
	slices.Sort(names)
	names = slices.Compact(names)

	result := &Result{}

	for _, name := range names {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("compare: %w", ctx.Err())
		}

		_, before := inPrev[name]
		_, after := inCur[name]

		switch {
		case before && !after:
			result.Removed = append(result.Removed, name)
		case after && !before:
			result.Added = append(result.Added, name)
		default:
			diffErr := n.diffDocument(result, name, filepath.Join(prevDir, name), filepath.Join(curDir, name))
			if diffErr != nil {
				return nil, diffErr
			}
		}
	}

	return result, nil
}

func (n *Native) diffDocument(result *Result, name, prevPath, curPath string) error {
	oldData, err := os.ReadFile(prevPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", prevPath, err)
	}

	newData, err := os.ReadFile(curPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", curPath, err)
	}

	if bytes.Equal(oldData, newData) {
		return nil
	}

	// diff reports differing binaries without line content.
	if textutil.IsBinary(oldData) || textutil.IsBinary(newData) {
		return nil
	}

	additions, deletions := n.LineDelta(textutil.SplitLines(oldData), textutil.SplitLines(newData))
	if len(additions) == 0 && len(deletions) == 0 {
		return nil
	}

	delta := result.open(name)
	delta.Additions = additions
	delta.Deletions = deletions

	return nil
}

// LineDelta returns the lines only in newLines and the lines only in
// oldLines, each in document order. Emitted lines keep their original
// whitespace even when matching ignores it.
func (n *Native) LineDelta(oldLines, newLines []string) (additions, deletions []string) {
	enc := lineEncoder{fold: n.IgnoreWhitespace, index: make(map[string]rune)}
	src := enc.encode(oldLines)
	dst := enc.encode(newLines)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = n.Timeout

	diffs := dmp.DiffCleanupMerge(dmp.DiffMainRunes(src, dst, false))

	oldPos, newPos := 0, 0

	for _, edit := range diffs {
		count := utf8.RuneCountInString(edit.Text)

		switch edit.Type {
		case diffmatchpatch.DiffEqual:
			oldPos += count
			newPos += count
		case diffmatchpatch.DiffInsert:
			additions = append(additions, newLines[newPos:newPos+count]...)
			newPos += count
		case diffmatchpatch.DiffDelete:
			deletions = append(deletions, oldLines[oldPos:oldPos+count]...)
			oldPos += count
		}
	}

	return additions, deletions
}

// UTF-16 surrogate block skipped by lineEncoder.
const (
	surrogateMin  = 0xD800
	surrogateSpan = 0x800
)

// lineEncoder maps each distinct line to a rune so the line diff runs as a
// character diff, the same trick as diffmatchpatch.DiffLinesToRunes.
type lineEncoder struct {
	index map[string]rune
	fold  bool
}

func (e *lineEncoder) encode(lines []string) []rune {
	out := make([]rune, len(lines))

	for i, line := range lines {
		key := line
		if e.fold {
			key = textutil.FoldWhitespace(line)
		}

		r, ok := e.index[key]
		if !ok {
			r = rune(len(e.index) + 1)
			// Surrogates do not survive the rune -> string round trip inside diffmatchpatch.
			if r >= surrogateMin {
				r += surrogateSpan
			}

			e.index[key] = r
		}

		out[i] = r
	}

	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	return set
}
