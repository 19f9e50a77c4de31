// Package delta turns an ordered sequence of corpus snapshots into per-version
// delta artifacts: documents holding only the lines each version added or
// removed relative to its predecessor.
package delta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
	"github.com/Sumatoshi-tech/topicdelta/pkg/observability"
	"github.com/Sumatoshi-tech/topicdelta/pkg/treediff"
)

const (
	tracerName = "topicdelta"

	stageExtract = "extract"

	kindReset = "reset"
	kindDelta = "delta"

	sourceSnapshot = "snapshot"
	sourceDiff     = "diff"
	sourceAdded    = "added"
	sourceRemoved  = "removed"

	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrNoComparator is returned by Run when the extractor has no comparator.
var ErrNoComparator = errors.New("extractor has no comparator")

// Extractor writes delta artifacts for every version of a corpus.
type Extractor struct {
	// SourceDir holds one subdirectory per version.
	SourceDir string
	// DestDir receives one subdirectory of artifacts per version.
	DestDir string
	// Comparator computes the difference between consecutive versions.
	Comparator treediff.Comparator
	// AutoReset additionally treats a version sharing no document names
	// with its predecessor as a reset.
	AutoReset bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
	// Metrics may be nil.
	Metrics *observability.PipelineMetrics
}

// NewExtractor creates an extractor reading sourceDir and writing destDir.
func NewExtractor(sourceDir, destDir string, comparator treediff.Comparator) *Extractor {
	return &Extractor{
		SourceDir:  sourceDir,
		DestDir:    destDir,
		Comparator: comparator,
	}
}

func (e *Extractor) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}

	return otel.Tracer(tracerName)
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}

	return slog.Default()
}

// Run processes seq in order and returns the manifest of what was written.
// The manifest is also saved into DestDir. Any filesystem, comparator or
// parse error aborts the run.
func (e *Extractor) Run(ctx context.Context, seq corpus.Sequence) (*Manifest, error) {
	if e.Comparator == nil {
		return nil, ErrNoComparator
	}

	detected := map[string]bool{}

	if e.AutoReset {
		var labels []string

		var err error

		seq, labels, err = corpus.DetectResets(e.SourceDir, seq)
		if err != nil {
			return nil, err
		}

		for _, label := range labels {
			detected[label] = true

			e.logger().InfoContext(ctx, "reset detected", "version", label)
		}
	}

	manifest := &Manifest{
		Source:     e.SourceDir,
		Comparator: e.Comparator.Name(),
		Versions:   make([]VersionEntry, 0, len(seq)),
	}

	for i := range seq {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, fmt.Errorf("extract: %w", ctxErr)
		}

		entry, err := e.runVersion(ctx, seq, i)
		if err != nil {
			return nil, err
		}

		entry.AutoDetected = detected[entry.Label]
		manifest.Versions = append(manifest.Versions, entry)
	}

	err := SaveManifest(e.DestDir, manifest)
	if err != nil {
		return nil, err
	}

	return manifest, nil
}

func (e *Extractor) runVersion(ctx context.Context, seq corpus.Sequence, i int) (VersionEntry, error) {
	cur := seq[i]
	restart := seq.Restarts(i)

	kind := kindDelta
	if restart {
		kind = kindReset
	}

	ctx = observability.WithVersion(ctx, cur.Label, kind)

	ctx, span := e.tracer().Start(ctx, "topicdelta.extract.version",
		trace.WithAttributes(
			attribute.String("version", cur.Label),
			attribute.String("kind", kind),
		))
	defer span.End()

	start := time.Now()

	entry := VersionEntry{Label: cur.Label, Reset: restart}

	outDir := filepath.Join(e.DestDir, cur.Label)

	err := os.MkdirAll(outDir, dirPerm)
	if err == nil {
		if restart {
			err = e.copySnapshot(ctx, cur.Label, &entry)
		} else {
			prev, _ := seq.Previous(i)
			err = e.writeDelta(ctx, prev.Label, cur.Label, &entry)
		}
	}

	if err == nil {
		err = e.census(cur.Label, &entry)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return VersionEntry{}, fmt.Errorf("extract version %s: %w", cur.Label, err)
	}

	span.SetAttributes(
		attribute.Int("artifacts.additions", len(entry.Additions)),
		attribute.Int("artifacts.deletions", len(entry.Deletions)),
		attribute.Int64("artifacts.bytes", entry.Bytes),
	)

	e.Metrics.RecordVersion(ctx, stageExtract, kind, time.Since(start))

	e.logger().InfoContext(ctx, "version extracted",
		"documents", entry.Documents,
		"additions", len(entry.Additions),
		"deletions", len(entry.Deletions),
	)

	return entry, nil
}

// copySnapshot copies every document of a restarting version verbatim as a
// whole-document addition.
func (e *Extractor) copySnapshot(ctx context.Context, label string, entry *VersionEntry) error {
	curDir := filepath.Join(e.SourceDir, label)

	docs, err := corpus.ListDocuments(curDir)
	if err != nil {
		return err
	}

	entry.Documents = len(docs)
	entry.Added = len(docs)

	for _, doc := range docs {
		err = e.copyArtifact(ctx, entry, corpus.MarkerAddition, sourceSnapshot, filepath.Join(curDir, doc), doc)
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) writeDelta(ctx context.Context, prevLabel, curLabel string, entry *VersionEntry) error {
	prevDir := filepath.Join(e.SourceDir, prevLabel)
	curDir := filepath.Join(e.SourceDir, curLabel)

	result, err := e.Comparator.Compare(ctx, prevDir, curDir)
	if err != nil {
		return fmt.Errorf("compare %s..%s: %w", prevLabel, curLabel, err)
	}

	docs, err := corpus.ListDocuments(curDir)
	if err != nil {
		return err
	}

	entry.Documents = len(docs)
	entry.Changed = len(result.Changed)
	entry.Added = len(result.Added)
	entry.Removed = len(result.Removed)

	for _, doc := range result.Changed {
		err = e.writeLines(ctx, entry, corpus.MarkerAddition, doc.Name, doc.Additions)
		if err != nil {
			return err
		}

		err = e.writeLines(ctx, entry, corpus.MarkerDeletion, doc.Name, doc.Deletions)
		if err != nil {
			return err
		}
	}

	for _, doc := range result.Added {
		err = e.copyArtifact(ctx, entry, corpus.MarkerAddition, sourceAdded, filepath.Join(curDir, doc), doc)
		if err != nil {
			return err
		}
	}

	for _, doc := range result.Removed {
		err = e.copyArtifact(ctx, entry, corpus.MarkerDeletion, sourceRemoved, filepath.Join(prevDir, doc), doc)
		if err != nil {
			return err
		}
	}

	return nil
}

// writeLines writes one line per entry, each newline terminated. An empty
// side produces no artifact.
func (e *Extractor) writeLines(
	ctx context.Context, entry *VersionEntry, marker corpus.Marker, doc string, lines []string,
) error {
	if len(lines) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	name := corpus.ArtifactName(marker, entry.Label, doc)
	path := filepath.Join(e.DestDir, entry.Label, name)

	err := os.WriteFile(path, []byte(sb.String()), filePerm)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	e.record(ctx, entry, marker, sourceDiff, name, int64(sb.Len()))

	return nil
}

func (e *Extractor) copyArtifact(
	ctx context.Context, entry *VersionEntry, marker corpus.Marker, source, srcPath, doc string,
) error {
	name := corpus.ArtifactName(marker, entry.Label, doc)

	written, err := copyFile(srcPath, filepath.Join(e.DestDir, entry.Label, name))
	if err != nil {
		return err
	}

	e.record(ctx, entry, marker, source, name, written)

	return nil
}

func (e *Extractor) record(
	ctx context.Context, entry *VersionEntry, marker corpus.Marker, source, name string, size int64,
) {
	if marker == corpus.MarkerAddition {
		entry.Additions = append(entry.Additions, name)
	} else {
		entry.Deletions = append(entry.Deletions, name)
	}

	entry.Bytes += size

	e.Metrics.RecordArtifact(ctx, string(marker), source, int(size))

	e.logger().DebugContext(ctx, "artifact written",
		"artifact", name,
		"source", source,
		"bytes", size,
	)
}

func (e *Extractor) census(label string, entry *VersionEntry) error {
	dir := filepath.Join(e.SourceDir, label)

	docs, err := corpus.ListDocuments(dir)
	if err != nil {
		return err
	}

	languages, err := corpus.Census(dir, docs)
	if err != nil {
		return err
	}

	if len(languages) > 0 {
		entry.Languages = languages
	}

	return nil
}

func copyFile(src, dst string) (written int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}

	defer func() {
		closeErr := out.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("close artifact: %w", closeErr)
		}
	}()

	written, err = io.Copy(out, in)
	if err != nil {
		return 0, fmt.Errorf("copy document: %w", err)
	}

	return written, nil
}
