package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/topicdelta/pkg/config"
	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
	"github.com/Sumatoshi-tech/topicdelta/pkg/delta"
	"github.com/Sumatoshi-tech/topicdelta/pkg/observability"
	"github.com/Sumatoshi-tech/topicdelta/pkg/reconstruct"
)

const (
	reconstructCommandName = "reconstruct"

	rawAdditionsSuffix = "-raw-a.csv"
	rawDeletionsSuffix = "-raw-d.csv"
)

// ErrNoVectorName is returned when neither --name, --add nor
// reconstruct.vector_name identifies the matrices.
var ErrNoVectorName = errors.New("vector name is required (use --name or reconstruct.vector_name)")

// ReconstructCommand holds flags and dependencies for the reconstruct command.
type ReconstructCommand struct {
	global *GlobalOptions

	addPath      string
	delPath      string
	outDir       string
	name         string
	resets       []string
	manifestPath string
	plotPath     string

	loadCfg configLoader
	initObs observabilityInit
}

// NewReconstructCommand creates the reconstruct command.
func NewReconstructCommand(global *GlobalOptions) *cobra.Command {
	return newReconstructCommandWithDeps(global, config.LoadConfig, observability.Init)
}

func newReconstructCommandWithDeps(global *GlobalOptions, loadCfg configLoader, initObs observabilityInit) *cobra.Command {
	rc := &ReconstructCommand{
		global:  global,
		loadCfg: loadCfg,
		initObs: initObs,
	}

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Rebuild per-version topic counts and memberships from delta matrices",
		Long: `Fold the raw additions and deletions topic matrices over the version order,
resetting at reset versions and clamping negative counts at zero, and write
<name>-percent.csv and <name>-counts.csv to the output directory.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.addPath, "add", "", "Additions matrix (default: <vectors_dir>/<name>-raw-a.csv)")
	cmd.Flags().StringVar(&rc.delPath, "del", "", "Deletions matrix (default: <vectors_dir>/<name>-raw-d.csv)")
	cmd.Flags().StringVar(&rc.outDir, "out", "", "Output directory (default: reconstruct.output_dir)")
	cmd.Flags().StringVar(&rc.name, "name", "", "Vector set name (default: reconstruct.vector_name)")
	cmd.Flags().StringSliceVar(&rc.resets, "reset", nil, "Reset version labels (default: corpus.resets)")
	cmd.Flags().StringVar(&rc.manifestPath, "manifest", "", "Extraction manifest to check version order and resets against")
	cmd.Flags().StringVar(&rc.plotPath, "plot", "", "Write an HTML membership chart to this file")

	return cmd
}

// inputs holds the resolved file locations of one run.
type inputs struct {
	name    string
	addPath string
	delPath string
	outDir  string
}

func (rc *ReconstructCommand) resolve(cmd *cobra.Command, cfg *config.Config) (inputs, error) {
	flags := cmd.Flags()

	if flags.Changed("reset") {
		cfg.Corpus.Resets = rc.resets
	}

	in := inputs{
		name:    cfg.Reconstruct.VectorName,
		addPath: rc.addPath,
		delPath: rc.delPath,
		outDir:  cfg.Reconstruct.OutputDir,
	}

	if flags.Changed("name") {
		in.name = rc.name
	}

	if flags.Changed("out") {
		in.outDir = rc.outDir
	}

	if in.name == "" && in.addPath != "" {
		in.name = strings.TrimSuffix(filepath.Base(in.addPath), rawAdditionsSuffix)
		in.name = strings.TrimSuffix(in.name, filepath.Ext(in.name))
	}

	if in.name == "" {
		return inputs{}, ErrNoVectorName
	}

	if in.addPath == "" {
		in.addPath = filepath.Join(cfg.Reconstruct.VectorsDir, in.name+rawAdditionsSuffix)
	}

	if in.delPath == "" {
		in.delPath = filepath.Join(cfg.Reconstruct.VectorsDir, in.name+rawDeletionsSuffix)
	}

	if in.outDir == "" {
		return inputs{}, config.ErrInvalidOutputDir
	}

	return in, nil
}

func (rc *ReconstructCommand) run(cmd *cobra.Command, _ []string) error {
	err := checkFormat(rc.global.Format)
	if err != nil {
		return err
	}

	sess, err := openSession(rc.global, rc.loadCfg, rc.initObs, reconstructCommandName, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	in, err := rc.resolve(cmd, sess.cfg)
	if err != nil {
		return err
	}

	ctx, span := tracerOf(sess.providers).Start(cmd.Context(), "topicdelta.reconstruct",
		trace.WithAttributes(
			attribute.String("name", in.name),
			attribute.String("add", in.addPath),
			attribute.String("del", in.delPath),
		))
	defer span.End()

	summary, err := rc.reconstruct(ctx, sess, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return renderReconstruct(cmd.OutOrStdout(), rc.global.Format, summary)
}

func (rc *ReconstructCommand) reconstruct(ctx context.Context, sess *session, in inputs) (ReconstructSummary, error) {
	logger := sess.providers.Logger
	span := trace.SpanFromContext(ctx)

	add, err := reconstruct.ReadMatrixFile(in.addPath)
	if err != nil {
		return ReconstructSummary{}, err
	}

	del, err := reconstruct.ReadMatrixFile(in.delPath)
	if err != nil {
		return ReconstructSummary{}, err
	}

	err = reconstruct.Validate(add, del)
	if err != nil {
		return ReconstructSummary{}, err
	}

	resets := corpus.NewResetSet(sess.cfg.Corpus.Resets...)

	if rc.manifestPath != "" {
		err = applyManifest(rc.manifestPath, add, resets)
		if err != nil {
			return ReconstructSummary{}, err
		}
	}

	start := time.Now()

	states, err := reconstruct.Reconstruct(add, del, resets)
	if err != nil {
		return ReconstructSummary{}, err
	}

	elapsed := time.Since(start)

	for _, state := range states {
		kind := kindDelta
		if state.Reset {
			kind = kindReset
		}

		vctx := observability.WithVersion(ctx, state.Label, kind)

		// The fold is a single pass; its time is spread evenly over versions.
		sess.metrics.RecordVersion(vctx, reconstructCommandName, kind, elapsed/time.Duration(len(states)))
		sess.metrics.RecordClamped(vctx, state.Clamped)

		if state.Degenerate {
			sess.metrics.RecordDegenerate(vctx)
			span.AddEvent("version.degenerate", trace.WithAttributes(attribute.String("version", state.Label)))
			logger.WarnContext(vctx, "version has no tokens, memberships set to zero")
		}

		if state.Clamped > 0 {
			logger.DebugContext(vctx, "negative counts clamped", "topics", state.Clamped)
		}
	}

	outputs, err := reconstruct.WriteFiles(in.outDir, in.name, states)
	if err != nil {
		return ReconstructSummary{}, err
	}

	if rc.plotPath != "" {
		err = reconstruct.PlotFile(rc.plotPath, in.name, states)
		if err != nil {
			return ReconstructSummary{}, err
		}
	}

	span.SetAttributes(attribute.Int("versions", len(states)), attribute.Int("topics", add.Topics))

	logger.InfoContext(ctx, "reconstruct finished",
		"versions", len(states),
		"topics", add.Topics,
		"percent", outputs.Percent,
		"counts", outputs.Counts,
	)

	return summarizeReconstruct(in.name, outputs, rc.plotPath, states), nil
}

// applyManifest checks the matrix version order against an extraction
// manifest and adds the manifest's reset versions to resets. A reset the
// matrix skips moves to the next version the matrix has.
func applyManifest(path string, add *reconstruct.Matrix, resets corpus.ResetSet) error {
	manifest, err := delta.LoadManifest(path)
	if err != nil {
		return err
	}

	err = reconstruct.CheckOrder(add.Labels(), manifest.Labels())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for _, v := range manifest.Versions {
		if v.Reset {
			resets[v.Label] = struct{}{}
		}
	}

	reconstruct.CarryResets(add.Labels(), manifest.Labels(), resets)

	return nil
}
