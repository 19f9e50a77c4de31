// Package corpus models a multi-version source corpus: an ordered sequence
// of version snapshot directories, each holding flat documents.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// ErrEmptyCorpus is returned when a corpus root holds no version directories.
var ErrEmptyCorpus = errors.New("corpus has no version directories")

// Version is one snapshot of the corpus.
type Version struct {
	// Label is the snapshot directory name.
	Label string `json:"label" yaml:"label"`
	// Reset marks the origin of a new codebase lineage. History is not
	// carried over from the predecessor into a reset version.
	Reset bool `json:"reset" yaml:"reset"`
}

// Sequence is the ordered list of versions in enumeration order.
type Sequence []Version

// Labels returns the version labels in order.
func (s Sequence) Labels() []string {
	labels := make([]string, len(s))
	for i, v := range s {
		labels[i] = v.Label
	}

	return labels
}

// Index returns the position of label in the sequence, or -1.
func (s Sequence) Index(label string) int {
	return slices.IndexFunc(s, func(v Version) bool { return v.Label == label })
}

// Previous returns the version preceding position i. The first version has
// no predecessor.
func (s Sequence) Previous(i int) (Version, bool) {
	if i <= 0 || i > len(s) {
		return Version{}, false
	}

	return s[i-1], true
}

// Restarts reports whether the version at position i starts accumulation
// from nothing: it is a reset version or has no predecessor.
func (s Sequence) Restarts(i int) bool {
	return i == 0 || s[i].Reset
}

// ResetSet is the set of reset version labels.
type ResetSet map[string]struct{}

// NewResetSet builds a ResetSet from labels. Blank labels are ignored.
func NewResetSet(labels ...string) ResetSet {
	set := make(ResetSet, len(labels))

	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		set[label] = struct{}{}
	}

	return set
}

// Contains reports whether label is a reset version.
func (r ResetSet) Contains(label string) bool {
	_, ok := r[label]

	return ok
}

// Labels returns the reset labels sorted lexically.
func (r ResetSet) Labels() []string {
	labels := make([]string, 0, len(r))
	for label := range r {
		labels = append(labels, label)
	}

	slices.Sort(labels)

	return labels
}

// ListVersions enumerates the version directories under root in listing
// order and tags each with its reset flag. Hidden entries and plain files
// are skipped.
func ListVersions(root string, resets ResetSet) (Sequence, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	var seq Sequence

	for _, entry := range entries {
		if !entry.IsDir() || isHidden(entry.Name()) {
			continue
		}

		seq = append(seq, Version{
			Label: entry.Name(),
			Reset: resets.Contains(entry.Name()),
		})
	}

	if len(seq) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, root)
	}

	return seq, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
