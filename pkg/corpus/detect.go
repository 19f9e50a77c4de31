package corpus

import (
	"fmt"
	"path/filepath"
	"slices"
)

// DetectResets marks as reset every version that shares no document name
// with its predecessor: the corpus switched to an unrelated codebase. It
// returns the updated sequence and the labels that were newly marked.
// Versions already flagged, and the first version, are left alone.
func DetectResets(root string, seq Sequence) (Sequence, []string, error) {
	out := slices.Clone(seq)

	var detected []string

	var prevDocs []string

	for i, v := range out {
		docs, err := ListDocuments(filepath.Join(root, v.Label))
		if err != nil {
			return nil, nil, fmt.Errorf("detect resets: %w", err)
		}

		if i > 0 && !v.Reset && len(docs) > 0 && disjoint(prevDocs, docs) {
			out[i].Reset = true
			detected = append(detected, v.Label)
		}

		prevDocs = docs
	}

	return out, detected, nil
}

func disjoint(a, b []string) bool {
	seen := make(map[string]struct{}, len(a))
	for _, name := range a {
		seen[name] = struct{}{}
	}

	for _, name := range b {
		if _, ok := seen[name]; ok {
			return false
		}
	}

	return true
}
