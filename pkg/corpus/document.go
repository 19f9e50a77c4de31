package corpus

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotArtifact is returned when a file name carries no delta marker.
var ErrNotArtifact = errors.New("not a delta artifact name")

// Marker tags a delta artifact as holding added or removed content.
type Marker string

const (
	// MarkerAddition tags content present in a version but not its predecessor.
	MarkerAddition Marker = "a"
	// MarkerDeletion tags content present in the predecessor but not the version.
	MarkerDeletion Marker = "d"
)

// ListDocuments returns the regular, non-hidden files of a version
// directory in listing order.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.Type().IsRegular() || isHidden(entry.Name()) {
			continue
		}

		docs = append(docs, entry.Name())
	}

	return docs, nil
}

// ArtifactName prefixes the base name of document with the version label
// and marker, keeping any directory part: ("07", a, "src/x.cpp") gives
// "src/07-a-x.cpp".
func ArtifactName(marker Marker, version, document string) string {
	label := version + "-" + string(marker) + "-"

	idx := strings.LastIndex(document, "/")
	if idx == -1 {
		return label + document
	}

	return document[:idx+1] + label + document[idx+1:]
}

// ParseArtifactName splits an artifact base name back into its marker,
// version label and document name. The earliest marker wins, so version
// labels must not contain "-a-" or "-d-".
func ParseArtifactName(name string) (Marker, string, string, error) {
	best := -1

	var marker Marker

	for _, candidate := range []Marker{MarkerAddition, MarkerDeletion} {
		idx := strings.Index(name, "-"+string(candidate)+"-")
		if idx > 0 && (best == -1 || idx < best) {
			best = idx
			marker = candidate
		}
	}

	const markerLen = 3

	if best == -1 || best+markerLen == len(name) {
		return "", "", "", fmt.Errorf("%w: %s", ErrNotArtifact, name)
	}

	return marker, name[:best], name[best+markerLen:], nil
}
