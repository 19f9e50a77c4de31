// Package commands implements CLI command handlers for topicdelta.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/topicdelta/pkg/config"
	"github.com/Sumatoshi-tech/topicdelta/pkg/observability"
	"github.com/Sumatoshi-tech/topicdelta/pkg/version"
)

const (
	tracerName = "topicdelta"

	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// GlobalOptions holds the persistent root flags shared by all commands.
type GlobalOptions struct {
	ConfigPath string
	Debug      bool
	LogJSON    bool
	Format     string
}

// BindGlobalFlags registers the persistent flags on root.
func BindGlobalFlags(root *cobra.Command, opts *GlobalOptions) {
	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Config file (default: .topicdelta.yaml in CWD or $HOME)")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging and full trace sampling")
	flags.BoolVar(&opts.LogJSON, "log-json", false, "Emit JSON log lines")
	flags.StringVar(&opts.Format, "format", FormatTable, "Summary format: table, json, yaml")
}

type configLoader func(path string) (*config.Config, error)

type observabilityInit func(cfg observability.Config) (observability.Providers, error)

// session carries what a command run needs after setup.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.PipelineMetrics
}

// openSession loads configuration and starts observability for command.
// The caller must call close.
func openSession(
	opts *GlobalOptions, loadCfg configLoader, initObs observabilityInit, command string, logOut io.Writer,
) (*session, error) {
	cfg, err := loadCfg(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	providers, err := initObs(observabilityConfig(cfg, opts, command, logOut))
	if err != nil {
		return nil, err
	}

	if providers.Logger == nil {
		providers.Logger = slog.New(slog.DiscardHandler)
	}

	var metrics *observability.PipelineMetrics

	if providers.Meter != nil {
		metrics, err = observability.NewPipelineMetrics(providers.Meter)
		if err != nil {
			return nil, err
		}
	}

	return &session{cfg: cfg, providers: providers, metrics: metrics}, nil
}

func (s *session) close() {
	if s.providers.Shutdown == nil {
		return
	}

	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func observabilityConfig(cfg *config.Config, opts *GlobalOptions, command string, logOut io.Writer) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Command = command
	obsCfg.LogLevel = cfg.SlogLevel()
	obsCfg.LogJSON = cfg.Logging.JSON || opts.LogJSON
	obsCfg.LogOutput = logOut
	obsCfg.MetricsFile = cfg.Telemetry.MetricsFile
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv(envOTLPEndpoint)
		obsCfg.OTLPInsecure = obsCfg.OTLPInsecure || os.Getenv(envOTLPInsecure) == "true"
	}

	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))

	if opts.Debug {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return obsCfg
}

func tracerOf(p observability.Providers) trace.Tracer {
	if p.Tracer != nil {
		return p.Tracer
	}

	return otel.Tracer(tracerName)
}
