package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricVersionsTotal      = "topicdelta.versions.total"
	metricArtifactsTotal     = "topicdelta.artifacts.total"
	metricArtifactBytesTotal = "topicdelta.artifact.bytes.total"
	metricClampedTotal       = "topicdelta.counts.clamped.total"
	metricDegenerateTotal    = "topicdelta.versions.degenerate.total"
	metricVersionDuration    = "topicdelta.version.duration.seconds"

	attrStage  = "stage"
	attrKind   = "kind"
	attrMarker = "marker"
	attrSource = "source"
)

// durationBucketBoundaries covers 1ms to 300s; a single version of a large
// corpus can take minutes under the native comparator.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// PipelineMetrics holds the OTel instruments for the extract and reconstruct stages.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	versionsTotal      metric.Int64Counter
	artifactsTotal     metric.Int64Counter
	artifactBytesTotal metric.Int64Counter
	clampedTotal       metric.Int64Counter
	degenerateTotal    metric.Int64Counter
	versionDuration    metric.Float64Histogram
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	versions, err := mt.Int64Counter(metricVersionsTotal,
		metric.WithDescription("Versions processed"),
		metric.WithUnit("{version}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricVersionsTotal, err)
	}

	artifacts, err := mt.Int64Counter(metricArtifactsTotal,
		metric.WithDescription("Delta artifacts written"),
		metric.WithUnit("{artifact}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArtifactsTotal, err)
	}

	artifactBytes, err := mt.Int64Counter(metricArtifactBytesTotal,
		metric.WithDescription("Bytes of delta artifacts written"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArtifactBytesTotal, err)
	}

	clamped, err := mt.Int64Counter(metricClampedTotal,
		metric.WithDescription("Topic counts clamped at zero during reconstruction"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricClampedTotal, err)
	}

	degenerate, err := mt.Int64Counter(metricDegenerateTotal,
		metric.WithDescription("Reconstructed versions with a zero topic total"),
		metric.WithUnit("{version}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDegenerateTotal, err)
	}

	duration, err := mt.Float64Histogram(metricVersionDuration,
		metric.WithDescription("Per-version processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricVersionDuration, err)
	}

	return &PipelineMetrics{
		versionsTotal:      versions,
		artifactsTotal:     artifacts,
		artifactBytesTotal: artifactBytes,
		clampedTotal:       clamped,
		degenerateTotal:    degenerate,
		versionDuration:    duration,
	}, nil
}

// RecordVersion records one processed version. Kind is "reset" or "delta".
func (pm *PipelineMetrics) RecordVersion(ctx context.Context, stage, kind string, duration time.Duration) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrKind, kind),
	)

	pm.versionsTotal.Add(ctx, 1, attrs)
	pm.versionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordArtifact records one written artifact. Source is "snapshot", "diff",
// "added" or "removed".
func (pm *PipelineMetrics) RecordArtifact(ctx context.Context, marker, source string, size int) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMarker, marker),
		attribute.String(attrSource, source),
	)

	pm.artifactsTotal.Add(ctx, 1, attrs)
	pm.artifactBytesTotal.Add(ctx, int64(size), attrs)
}

// RecordClamped records topic counts that went negative and were clamped.
func (pm *PipelineMetrics) RecordClamped(ctx context.Context, n int) {
	if pm == nil || n == 0 {
		return
	}

	pm.clampedTotal.Add(ctx, int64(n))
}

// RecordDegenerate records a version whose reconstructed total is zero.
func (pm *PipelineMetrics) RecordDegenerate(ctx context.Context) {
	if pm == nil {
		return
	}

	pm.degenerateTotal.Add(ctx, 1)
}
