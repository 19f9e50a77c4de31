package reconstruct

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
)

// ErrManifestMismatch indicates matrix versions that do not follow the
// extraction manifest's version order.
var ErrManifestMismatch = errors.New("matrix versions do not match extraction manifest")

// State is the finalized accumulated topic counts of one version.
type State struct {
	Label  string
	Counts []int64
	// Total is the sum of Counts after clamping.
	Total int64
	// Degenerate marks a version whose Total is zero; its memberships are all 0.
	Degenerate bool
	// Clamped is how many topic counts went negative and were raised to zero.
	Clamped int
	// Reset marks a version that started from zero counts.
	Reset bool
}

// Membership returns each topic's share of Total. A degenerate state
// yields zeros.
func (s State) Membership() []float64 {
	shares := make([]float64, len(s.Counts))
	if s.Total == 0 {
		return shares
	}

	for i, count := range s.Counts {
		shares[i] = float64(count) / float64(s.Total)
	}

	return shares
}

// Reconstruct folds the delta matrices over the version order of add.
// A reset version, and the first version, start from zeros; every other
// version starts from a copy of its predecessor's counts. Each count moves
// by add-del and is clamped at zero. The result is a pure function of the
// inputs.
func Reconstruct(add, del *Matrix, resets corpus.ResetSet) ([]State, error) {
	err := Validate(add, del)
	if err != nil {
		return nil, err
	}

	states := make([]State, 0, len(add.Rows))

	for i, row := range add.Rows {
		restart := i == 0 || resets.Contains(row.Label)

		var counts []int64
		if restart {
			counts = make([]int64, add.Topics)
		} else {
			counts = slices.Clone(states[i-1].Counts)
		}

		state := State{Label: row.Label, Reset: restart}

		for t := range counts {
			counts[t] += row.Counts[t] - del.Rows[i].Counts[t]
			if counts[t] < 0 {
				counts[t] = 0
				state.Clamped++
			}

			state.Total += counts[t]
		}

		state.Counts = counts
		state.Degenerate = state.Total == 0

		states = append(states, state)
	}

	return states, nil
}

// CheckOrder verifies that every matrix label appears in the manifest order
// and that the labels follow that order. Versions missing from the matrix
// are allowed.
func CheckOrder(labels, order []string) error {
	position := make(map[string]int, len(order))
	for i, label := range order {
		position[label] = i
	}

	last := -1

	for _, label := range labels {
		idx, ok := position[label]
		if !ok {
			return fmt.Errorf("%w: version %q not extracted", ErrManifestMismatch, label)
		}

		if idx <= last {
			return fmt.Errorf("%w: version %q out of order", ErrManifestMismatch, label)
		}

		last = idx
	}

	return nil
}

// CarryResets moves every reset in order that labels skip onto the next
// label present in labels, so accumulation never continues across a reset.
// Resets after the last present label are dropped.
func CarryResets(labels, order []string, resets corpus.ResetSet) {
	pending := false

	for _, label := range order {
		if !slices.Contains(labels, label) {
			pending = pending || resets.Contains(label)

			continue
		}

		if pending {
			resets[label] = struct{}{}
			pending = false
		}
	}
}
