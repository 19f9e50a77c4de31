package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/topicdelta/pkg/config"
	"github.com/Sumatoshi-tech/topicdelta/pkg/observability"
)

// telemetry captures everything a command emits.
type telemetry struct {
	spans          *tracetest.InMemoryExporter
	reader         *sdkmetric.ManualReader
	logs           *bytes.Buffer
	shutdownCalled bool
	seenCfg        observability.Config
}

func newTelemetry(t *testing.T) (*telemetry, observabilityInit) {
	t.Helper()

	tel := &telemetry{
		spans:  tracetest.NewInMemoryExporter(),
		reader: sdkmetric.NewManualReader(),
		logs:   &bytes.Buffer{},
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(tel.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(tel.reader))

	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
		require.NoError(t, mp.Shutdown(context.Background()))
	})

	initObs := func(cfg observability.Config) (observability.Providers, error) {
		tel.seenCfg = cfg

		return observability.Providers{
			Tracer: tp.Tracer("test"),
			Meter:  mp.Meter("test"),
			Logger: slog.New(slog.NewTextHandler(tel.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
			Shutdown: func(_ context.Context) error {
				tel.shutdownCalled = true

				return nil
			},
		}, nil
	}

	return tel, initObs
}

func (tel *telemetry) spanNames() []string {
	stubs := tel.spans.GetSpans()

	names := make([]string, len(stubs))
	for i, s := range stubs {
		names[i] = s.Name
	}

	return names
}

func (tel *telemetry) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, tel.reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}

			return total
		}
	}

	return 0
}

// emptyConfig loads defaults from an empty config file so no stray
// .topicdelta.yaml affects the test.
func emptyConfig(t *testing.T) configLoader {
	t.Helper()

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	return func(_ string) (*config.Config, error) {
		return config.LoadConfig(path)
	}
}

type commandFactory func(*GlobalOptions, configLoader, observabilityInit) *cobra.Command

// execute runs sub under a root carrying the global flags.
func execute(
	t *testing.T, factory commandFactory, loadCfg configLoader, initObs observabilityInit, args ...string,
) (string, error) {
	t.Helper()

	opts := &GlobalOptions{}
	root := &cobra.Command{Use: "topicdelta", SilenceUsage: true, SilenceErrors: true}
	BindGlobalFlags(root, opts)
	root.AddCommand(factory(opts, loadCfg, initObs))

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func configAt(path string) configLoader {
	return func(_ string) (*config.Config, error) {
		return config.LoadConfig(path)
	}
}
