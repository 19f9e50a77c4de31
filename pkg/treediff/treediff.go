// Package treediff compares two version snapshot directories and reports
// line-level additions and deletions per document, plus documents that
// exist on only one side.
package treediff

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Sentinel errors for tree comparison.
var (
	// ErrUnattributedDocument is returned when a whole-document report names
	// a directory that is neither the previous nor the current version.
	ErrUnattributedDocument = errors.New("whole-document report matches neither compared version")
	// ErrOrphanChangeLine is returned when a changed line precedes any file header.
	ErrOrphanChangeLine = errors.New("changed line outside a file block")
	// ErrDifferentRoots is returned when the two trees do not share a parent directory.
	ErrDifferentRoots = errors.New("compared trees must share a parent directory")
	// ErrUnknownComparator is returned by New for an unsupported comparator kind.
	ErrUnknownComparator = errors.New("unknown comparator")
)

// DocumentDelta holds the lines one document gained and lost between two versions.
type DocumentDelta struct {
	// Name is the document's base name.
	Name string `json:"name" yaml:"name"`
	// Additions are lines present only in the current version, in report order.
	Additions []string `json:"additions" yaml:"additions"`
	// Deletions are lines present only in the previous version, in report order.
	Deletions []string `json:"deletions" yaml:"deletions"`
}

// Result is the outcome of comparing a previous and a current tree.
type Result struct {
	// Changed lists documents present in both trees whose content differs.
	Changed []DocumentDelta `json:"changed" yaml:"changed"`
	// Added lists documents present only in the current tree.
	Added []string `json:"added" yaml:"added"`
	// Removed lists documents present only in the previous tree.
	Removed []string `json:"removed" yaml:"removed"`

	index map[string]int
}

// open starts (or reopens) the change block for name and returns it.
func (r *Result) open(name string) *DocumentDelta {
	if r.index == nil {
		r.index = make(map[string]int)
	}

	idx, ok := r.index[name]
	if !ok {
		idx = len(r.Changed)
		r.index[name] = idx
		r.Changed = append(r.Changed, DocumentDelta{Name: name})
	}

	return &r.Changed[idx]
}

// restrict drops entries that are not documents of the compared trees, as
// listed by corpus.ListDocuments: subdirectories, hidden files and other
// non-regular entries.
func (r *Result) restrict(prevDocs, curDocs []string) {
	inPrev := toSet(prevDocs)
	inCur := toSet(curDocs)

	r.Added = slices.DeleteFunc(r.Added, func(name string) bool {
		_, ok := inCur[name]

		return !ok
	})

	r.Removed = slices.DeleteFunc(r.Removed, func(name string) bool {
		_, ok := inPrev[name]

		return !ok
	})

	r.Changed = slices.DeleteFunc(r.Changed, func(doc DocumentDelta) bool {
		_, before := inPrev[doc.Name]
		_, after := inCur[doc.Name]

		return !before || !after
	})

	r.index = nil
}

// Comparator compares the document sets of two version directories.
// Results name only documents in the corpus.ListDocuments sense, so every
// implementation sees the same tree the same way.
type Comparator interface {
	// Name identifies the implementation in logs and summaries.
	Name() string
	// Compare diffs prevDir against curDir.
	Compare(ctx context.Context, prevDir, curDir string) (*Result, error)
}

// Comparator kinds accepted by New.
const (
	KindNative   = "native"
	KindExternal = "external"
)

// Options configures comparator construction.
type Options struct {
	// IgnoreWhitespace compares lines with all whitespace removed.
	IgnoreWhitespace bool
	// DiffBinary is the diff executable used by the external comparator.
	DiffBinary string
	// DiffTimeout bounds each native document diff. Zero means no limit.
	DiffTimeout time.Duration
}

// New returns the comparator for kind.
//
//nolint:ireturn // callers select the implementation at runtime.
func New(kind string, opts Options) (Comparator, error) {
	switch kind {
	case KindNative, "":
		native := NewNative(opts.IgnoreWhitespace)
		native.Timeout = opts.DiffTimeout

		return native, nil
	case KindExternal:
		return NewExternal(opts.DiffBinary, opts.IgnoreWhitespace), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownComparator, kind)
	}
}
