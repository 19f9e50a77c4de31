package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/topicdelta/pkg/config"
	"github.com/Sumatoshi-tech/topicdelta/pkg/delta"
)

func extractFixture(t *testing.T) (string, string) {
	t.Helper()

	source := t.TempDir()
	writeTree(t, source, map[string]string{
		"06/view.cpp": "int a;\nint b;\n",
		"06/gone.cpp": "old\n",
		"07/view.cpp": "int a;\nint c;\n",
		"07/new.cpp":  "fresh\n",
	})

	return source, filepath.Join(t.TempDir(), "stage1")
}

func TestExtractCommand_WritesArtifactsAndManifest(t *testing.T) {
	t.Parallel()

	source, dest := extractFixture(t)
	tel, initObs := newTelemetry(t)

	out, err := execute(t, newExtractCommandWithDeps, emptyConfig(t), initObs,
		"--format", "json", "extract", "--source", source, "--dest", dest)
	require.NoError(t, err)

	var manifest delta.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.Equal(t, []string{"06", "07"}, manifest.Labels())

	data, err := os.ReadFile(filepath.Join(dest, "07", "07-a-view.cpp"))
	require.NoError(t, err)
	assert.Equal(t, "int c;\n", string(data))

	assert.FileExists(t, filepath.Join(dest, "07", "07-d-gone.cpp"))
	assert.FileExists(t, delta.ManifestPath(dest))

	assert.True(t, tel.shutdownCalled)
	assert.Equal(t, "extract", tel.seenCfg.Command)
	assert.Equal(t, int64(2), tel.counter(t, "topicdelta.versions.total"))
}

func TestExtractCommand_SpanTree(t *testing.T) {
	t.Parallel()

	source, dest := extractFixture(t)
	tel, initObs := newTelemetry(t)

	_, err := execute(t, newExtractCommandWithDeps, emptyConfig(t), initObs,
		"extract", "--source", source, "--dest", dest)
	require.NoError(t, err)

	spans := tel.spans.GetSpans()
	require.Len(t, spans, 3)

	var rootID string

	for _, s := range spans {
		if s.Name == "topicdelta.extract" {
			rootID = s.SpanContext.SpanID().String()
		}
	}

	require.NotEmpty(t, rootID, "root span missing: %v", tel.spanNames())

	for _, s := range spans {
		if s.Name == "topicdelta.extract.version" {
			assert.Equal(t, rootID, s.Parent.SpanID().String())
		}
	}
}

func TestExtractCommand_TableSummary(t *testing.T) {
	t.Parallel()

	source, dest := extractFixture(t)
	_, initObs := newTelemetry(t)

	out, err := execute(t, newExtractCommandWithDeps, emptyConfig(t), initObs,
		"extract", "--source", source, "--dest", dest, "--reset", "07")
	require.NoError(t, err)

	assert.Contains(t, out, "Extracted 4 artifacts into "+dest)
	assert.Contains(t, out, "C++ 2")
	assert.NoFileExists(t, filepath.Join(dest, "07", "07-d-gone.cpp"))
}

func TestExtractCommand_InvalidComparator(t *testing.T) {
	t.Parallel()

	source, dest := extractFixture(t)
	_, initObs := newTelemetry(t)

	_, err := execute(t, newExtractCommandWithDeps, emptyConfig(t), initObs,
		"extract", "--source", source, "--dest", dest, "--comparator", "patience")
	require.ErrorIs(t, err, config.ErrInvalidComparator)
}

func TestExtractCommand_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, initObs := newTelemetry(t)

	_, err := execute(t, newExtractCommandWithDeps, emptyConfig(t), initObs, "--format", "xml", "extract")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExtractCommand_DebugFlag(t *testing.T) {
	t.Parallel()

	source, dest := extractFixture(t)
	tel, initObs := newTelemetry(t)

	_, err := execute(t, newExtractCommandWithDeps, emptyConfig(t), initObs,
		"--debug", "--log-json", "extract", "--source", source, "--dest", dest)
	require.NoError(t, err)

	assert.True(t, tel.seenCfg.DebugTrace)
	assert.True(t, tel.seenCfg.LogJSON)
}
