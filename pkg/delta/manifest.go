package delta

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
	"github.com/Sumatoshi-tech/topicdelta/pkg/persist"
)

// manifestBasename is the manifest file name inside the delta directory,
// without extension.
const manifestBasename = "manifest"

// ErrInvalidManifest is returned when a manifest's artifact list does not
// match its versions.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest records what an extraction run produced, in version order.
// The reconstructor uses it to check that the topic matrices follow the
// same version grouping.
type Manifest struct {
	Source     string         `json:"source"     yaml:"source"`
	Comparator string         `json:"comparator" yaml:"comparator"`
	Versions   []VersionEntry `json:"versions"   yaml:"versions"`
}

// VersionEntry describes the artifacts written for one version.
type VersionEntry struct {
	Label        string         `json:"label"                   yaml:"label"`
	Reset        bool           `json:"reset"                   yaml:"reset"`
	AutoDetected bool           `json:"auto_detected,omitempty" yaml:"auto_detected,omitempty"`
	Documents    int            `json:"documents"               yaml:"documents"`
	Changed      int            `json:"changed"                 yaml:"changed"`
	Added        int            `json:"added"                   yaml:"added"`
	Removed      int            `json:"removed"                 yaml:"removed"`
	Additions    []string       `json:"additions"               yaml:"additions"`
	Deletions    []string       `json:"deletions"               yaml:"deletions"`
	Bytes        int64          `json:"bytes"                   yaml:"bytes"`
	Languages    map[string]int `json:"languages,omitempty"     yaml:"languages,omitempty"`
}

// Labels returns the version labels in extraction order.
func (m *Manifest) Labels() []string {
	labels := make([]string, len(m.Versions))
	for i, v := range m.Versions {
		labels[i] = v.Label
	}

	return labels
}

// Artifacts returns the total number of artifacts written.
func (m *Manifest) Artifacts() int {
	total := 0
	for _, v := range m.Versions {
		total += len(v.Additions) + len(v.Deletions)
	}

	return total
}

// Bytes returns the total size of all artifacts written.
func (m *Manifest) Bytes() int64 {
	var total int64
	for _, v := range m.Versions {
		total += v.Bytes
	}

	return total
}

// Validate checks that every listed artifact is named for its version and
// the side it is listed under. Version labels containing "-a-" or "-d-" are
// not supported.
func (m *Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Versions))

	for _, v := range m.Versions {
		if _, dup := seen[v.Label]; dup {
			return fmt.Errorf("%w: version %q listed twice", ErrInvalidManifest, v.Label)
		}

		seen[v.Label] = struct{}{}

		err := checkArtifacts(v.Label, corpus.MarkerAddition, v.Additions)
		if err != nil {
			return err
		}

		err = checkArtifacts(v.Label, corpus.MarkerDeletion, v.Deletions)
		if err != nil {
			return err
		}
	}

	return nil
}

func checkArtifacts(label string, want corpus.Marker, names []string) error {
	for _, name := range names {
		marker, version, _, err := corpus.ParseArtifactName(filepath.Base(name))
		if err != nil {
			return fmt.Errorf("%w: version %s: %w", ErrInvalidManifest, label, err)
		}

		if version != label || marker != want {
			return fmt.Errorf("%w: version %s lists %s as %q", ErrInvalidManifest, label, name, want)
		}
	}

	return nil
}

func manifestPersister() *persist.Persister[Manifest] {
	return persist.NewPersister[Manifest](manifestBasename, persist.NewJSONCodec())
}

// ManifestPath returns where Run stores the manifest inside destDir.
func ManifestPath(destDir string) string {
	return manifestPersister().Path(destDir)
}

// SaveManifest writes m as JSON into destDir.
func SaveManifest(destDir string, m *Manifest) error {
	err := manifestPersister().Save(destDir, m)
	if err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	return nil
}

// LoadManifest reads and validates a manifest. A directory path is the
// delta directory holding the manifest Run wrote; for a file path the codec
// follows the file extension.
func LoadManifest(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	var m *Manifest

	if info.IsDir() {
		m, err = manifestPersister().Load(path)
	} else {
		m, err = loadManifestFile(filepath.Clean(path))
	}

	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	err = m.Validate()
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}

	return m, nil
}

func loadManifestFile(path string) (*Manifest, error) {
	codec, err := persist.CodecFor(path)
	if err != nil {
		return nil, err
	}

	var m Manifest

	err = persist.LoadFile(path, codec, &m)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
