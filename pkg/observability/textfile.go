package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Textfile bridges OTel instruments to a Prometheus registry that is dumped
// once to a file when the batch run ends. Each Textfile owns an independent
// registry to avoid collector conflicts.
type Textfile struct {
	path     string
	registry *prometheus.Registry
	exporter *promexporter.Exporter
}

// NewTextfile creates a Prometheus-backed metric reader that writes to path.
func NewTextfile(path string) (*Textfile, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &Textfile{path: path, registry: registry, exporter: exporter}, nil
}

// Reader returns the metric reader to attach to a MeterProvider.
//
//nolint:ireturn // sdkmetric.Reader is the MeterProvider contract.
func (tf *Textfile) Reader() sdkmetric.Reader {
	return tf.exporter
}

// Write gathers the registry and writes it atomically to the configured path.
func (tf *Textfile) Write() error {
	err := prometheus.WriteToTextfile(tf.path, tf.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
