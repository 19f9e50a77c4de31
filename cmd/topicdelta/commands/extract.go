package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/topicdelta/pkg/config"
	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
	"github.com/Sumatoshi-tech/topicdelta/pkg/delta"
	"github.com/Sumatoshi-tech/topicdelta/pkg/observability"
	"github.com/Sumatoshi-tech/topicdelta/pkg/treediff"
)

const extractCommandName = "extract"

// ExtractCommand holds flags and dependencies for the extract command.
type ExtractCommand struct {
	global *GlobalOptions

	source     string
	dest       string
	resets     []string
	comparator string
	autoReset  bool

	loadCfg configLoader
	initObs observabilityInit
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(global *GlobalOptions) *cobra.Command {
	return newExtractCommandWithDeps(global, config.LoadConfig, observability.Init)
}

func newExtractCommandWithDeps(global *GlobalOptions, loadCfg configLoader, initObs observabilityInit) *cobra.Command {
	ec := &ExtractCommand{
		global:  global,
		loadCfg: loadCfg,
		initObs: initObs,
	}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write per-version delta artifacts from corpus snapshots",
		Long: `Compare every version directory of the source corpus with its predecessor
and write the added and removed lines of each document as separate artifacts
(<version>-a-<doc>, <version>-d-<doc>) under the destination directory.

Reset versions, and the first version, are copied whole as additions.`,
		Args: cobra.NoArgs,
		RunE: ec.run,
	}

	cmd.Flags().StringVar(&ec.source, "source", "", "Corpus root holding one directory per version (default: corpus.source_dir)")
	cmd.Flags().StringVar(&ec.dest, "dest", "", "Destination for delta artifacts (default: corpus.delta_dir)")
	cmd.Flags().StringSliceVar(&ec.resets, "reset", nil, "Reset version labels (default: corpus.resets)")
	cmd.Flags().StringVar(&ec.comparator, "comparator", "", "Tree comparator: native or external (default: extract.comparator)")
	cmd.Flags().BoolVar(&ec.autoReset, "auto-reset", false, "Also reset on versions sharing no documents with their predecessor")

	return cmd
}

// applyFlags overrides configuration with explicitly set flags.
func (ec *ExtractCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("source") {
		cfg.Corpus.SourceDir = ec.source
	}

	if flags.Changed("dest") {
		cfg.Corpus.DeltaDir = ec.dest
	}

	if flags.Changed("reset") {
		cfg.Corpus.Resets = ec.resets
	}

	if flags.Changed("comparator") {
		cfg.Extract.Comparator = ec.comparator
	}

	if flags.Changed("auto-reset") {
		cfg.Extract.AutoReset = ec.autoReset
	}

	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	return nil
}

func (ec *ExtractCommand) run(cmd *cobra.Command, _ []string) error {
	err := checkFormat(ec.global.Format)
	if err != nil {
		return err
	}

	sess, err := openSession(ec.global, ec.loadCfg, ec.initObs, extractCommandName, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	cfg := sess.cfg

	err = ec.applyFlags(cmd, cfg)
	if err != nil {
		return err
	}

	logger := sess.providers.Logger

	ctx, span := tracerOf(sess.providers).Start(cmd.Context(), "topicdelta.extract",
		trace.WithAttributes(
			attribute.String("source", cfg.Corpus.SourceDir),
			attribute.String("dest", cfg.Corpus.DeltaDir),
			attribute.String("comparator", cfg.Extract.Comparator),
		))
	defer span.End()

	comparator, err := treediff.New(cfg.Extract.Comparator, treediff.Options{
		IgnoreWhitespace: cfg.Extract.IgnoreWhitespace,
		DiffBinary:       cfg.Extract.DiffBinary,
		DiffTimeout:      cfg.Extract.DiffTimeout,
	})
	if err != nil {
		return err
	}

	seq, err := corpus.ListVersions(cfg.Corpus.SourceDir, corpus.NewResetSet(cfg.Corpus.Resets...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	logger.InfoContext(ctx, "extract started",
		"source", cfg.Corpus.SourceDir,
		"dest", cfg.Corpus.DeltaDir,
		"versions", len(seq),
		"comparator", comparator.Name(),
	)

	extractor := delta.NewExtractor(cfg.Corpus.SourceDir, cfg.Corpus.DeltaDir, comparator)
	extractor.AutoReset = cfg.Extract.AutoReset
	extractor.Logger = logger
	extractor.Tracer = sess.providers.Tracer
	extractor.Metrics = sess.metrics

	manifest, err := extractor.Run(ctx, seq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	span.SetAttributes(
		attribute.Int("versions", len(manifest.Versions)),
		attribute.Int("artifacts", manifest.Artifacts()),
	)

	logger.InfoContext(ctx, "extract finished",
		"versions", len(manifest.Versions),
		"artifacts", manifest.Artifacts(),
		"manifest", delta.ManifestPath(cfg.Corpus.DeltaDir),
	)

	return renderExtract(cmd.OutOrStdout(), ec.global.Format, cfg.Corpus.DeltaDir, manifest)
}
