// Package config provides YAML-based project configuration for topicdelta.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Config is the top-level configuration struct for topicdelta.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Corpus      CorpusConfig      `mapstructure:"corpus"`
	Extract     ExtractConfig     `mapstructure:"extract"`
	Reconstruct ReconstructConfig `mapstructure:"reconstruct"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// CorpusConfig locates the version snapshots and names the reset versions.
type CorpusConfig struct {
	SourceDir string   `mapstructure:"source_dir"`
	DeltaDir  string   `mapstructure:"delta_dir"`
	Resets    []string `mapstructure:"resets"`
}

// ExtractConfig holds delta extraction settings. DiffTimeout bounds each
// native document diff; zero means no limit.
type ExtractConfig struct {
	Comparator       string        `mapstructure:"comparator"`
	DiffBinary       string        `mapstructure:"diff_binary"`
	IgnoreWhitespace bool          `mapstructure:"ignore_whitespace"`
	AutoReset        bool          `mapstructure:"auto_reset"`
	DiffTimeout      time.Duration `mapstructure:"diff_timeout"`
}

// ReconstructConfig holds matrix locations for reconstruction.
type ReconstructConfig struct {
	VectorsDir string `mapstructure:"vectors_dir"`
	VectorName string `mapstructure:"vector_name"`
	OutputDir  string `mapstructure:"output_dir"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsFile  string `mapstructure:"metrics_file"`
}

// Comparator kinds accepted by extract.comparator.
const (
	ComparatorNative   = "native"
	ComparatorExternal = "external"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidSourceDir indicates corpus.source_dir is empty.
	ErrInvalidSourceDir = errors.New("corpus.source_dir must not be empty")
	// ErrInvalidDeltaDir indicates corpus.delta_dir is empty or equals source_dir.
	ErrInvalidDeltaDir = errors.New("corpus.delta_dir must be set and differ from corpus.source_dir")
	// ErrInvalidResetLabel indicates an empty or path-like reset label.
	ErrInvalidResetLabel = errors.New("corpus.resets entries must be plain version labels")
	// ErrInvalidComparator indicates an unknown extract.comparator.
	ErrInvalidComparator = errors.New("extract.comparator must be native or external")
	// ErrInvalidDiffBinary indicates the external comparator has no binary.
	ErrInvalidDiffBinary = errors.New("extract.diff_binary must be set for the external comparator")
	// ErrInvalidDiffTimeout indicates a negative extract.diff_timeout.
	ErrInvalidDiffTimeout = errors.New("extract.diff_timeout must not be negative")
	// ErrInvalidOutputDir indicates reconstruct.output_dir is empty.
	ErrInvalidOutputDir = errors.New("reconstruct.output_dir must not be empty")
	// ErrInvalidLogLevel indicates an unknown logging.level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	corpusErr := c.validateCorpus()
	if corpusErr != nil {
		return corpusErr
	}

	extractErr := c.validateExtract()
	if extractErr != nil {
		return extractErr
	}

	if c.Reconstruct.OutputDir == "" {
		return ErrInvalidOutputDir
	}

	if _, ok := logLevels[strings.ToLower(c.Logging.Level)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return nil
}

func (c *Config) validateCorpus() error {
	if c.Corpus.SourceDir == "" {
		return ErrInvalidSourceDir
	}

	if c.Corpus.DeltaDir == "" || c.Corpus.DeltaDir == c.Corpus.SourceDir {
		return ErrInvalidDeltaDir
	}

	invalid := slices.IndexFunc(c.Corpus.Resets, func(label string) bool {
		return label == "" || strings.ContainsAny(label, `/\`)
	})
	if invalid >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidResetLabel, c.Corpus.Resets[invalid])
	}

	return nil
}

func (c *Config) validateExtract() error {
	if c.Extract.DiffTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDiffTimeout, c.Extract.DiffTimeout)
	}

	switch c.Extract.Comparator {
	case ComparatorNative:
	case ComparatorExternal:
		if c.Extract.DiffBinary == "" {
			return ErrInvalidDiffBinary
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidComparator, c.Extract.Comparator)
	}

	return nil
}

// SlogLevel maps logging.level to a slog level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	level, ok := logLevels[strings.ToLower(c.Logging.Level)]
	if !ok {
		return slog.LevelInfo
	}

	return level
}
