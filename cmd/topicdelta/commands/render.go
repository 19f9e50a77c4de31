package commands

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/topicdelta/pkg/delta"
	"github.com/Sumatoshi-tech/topicdelta/pkg/persist"
	"github.com/Sumatoshi-tech/topicdelta/pkg/reconstruct"
	"github.com/Sumatoshi-tech/topicdelta/pkg/safeconv"
)

// Summary formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const (
	percentValue  = 100
	topLanguages  = 3
	kindReset     = "reset"
	kindAutoReset = "reset (auto)"
	kindDelta     = "delta"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

func checkFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q (want table, json or yaml)", ErrUnknownFormat, format)
	}
}

// encode writes summary with the structured codec for format.
func encode(w io.Writer, format string, summary any) error {
	var codec persist.Codec

	switch format {
	case FormatJSON:
		codec = persist.NewJSONCodec()
	case FormatYAML:
		codec = persist.NewYAMLCodec()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return codec.Encode(w, summary)
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func versionKind(v delta.VersionEntry) string {
	switch {
	case v.AutoDetected:
		return kindAutoReset
	case v.Reset:
		return kindReset
	default:
		return kindDelta
	}
}

func languageSummary(languages map[string]int) string {
	names := slices.SortedFunc(maps.Keys(languages), func(a, b string) int {
		if languages[a] != languages[b] {
			return languages[b] - languages[a]
		}

		return strings.Compare(a, b)
	})

	if len(names) > topLanguages {
		names = names[:topLanguages]
	}

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + strconv.Itoa(languages[name])
	}

	return strings.Join(parts, ", ")
}

// renderExtract writes the extraction summary.
func renderExtract(w io.Writer, format, destDir string, manifest *delta.Manifest) error {
	if format != FormatTable {
		return encode(w, format, manifest)
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Version", "Kind", "Documents", "Changed", "Added", "Removed", "+Artifacts", "-Artifacts", "Size", "Languages"})

	for _, v := range manifest.Versions {
		tbl.AppendRow(table.Row{
			v.Label, versionKind(v), v.Documents, v.Changed, v.Added, v.Removed,
			len(v.Additions), len(v.Deletions), humanize.Bytes(safeconv.MustInt64ToUint64(v.Bytes)), languageSummary(v.Languages),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %d versions", len(manifest.Versions)), "", "", "", "", "", "", "",
		humanize.Bytes(safeconv.MustInt64ToUint64(manifest.Bytes())), "",
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	color.New(color.FgGreen).Fprintf(w, "Extracted %s artifacts into %s\n",
		humanize.Comma(int64(manifest.Artifacts())), destDir)

	return nil
}

// ReconstructSummary is the structured result of a reconstruct run.
type ReconstructSummary struct {
	Name     string               `json:"name"     yaml:"name"`
	Outputs  reconstruct.Outputs  `json:"outputs"  yaml:"outputs"`
	Plot     string               `json:"plot,omitempty" yaml:"plot,omitempty"`
	Versions []VersionReconstruct `json:"versions" yaml:"versions"`
}

// VersionReconstruct summarizes one reconstructed version.
type VersionReconstruct struct {
	Label      string  `json:"label"      yaml:"label"`
	Reset      bool    `json:"reset"      yaml:"reset"`
	Total      int64   `json:"total"      yaml:"total"`
	Clamped    int     `json:"clamped"    yaml:"clamped"`
	Degenerate bool    `json:"degenerate" yaml:"degenerate"`
	TopTopic   int     `json:"top_topic"  yaml:"top_topic"`
	TopShare   float64 `json:"top_share"  yaml:"top_share"`
}

func summarizeReconstruct(name string, outputs reconstruct.Outputs, plot string, states []reconstruct.State) ReconstructSummary {
	summary := ReconstructSummary{
		Name:     name,
		Outputs:  outputs,
		Plot:     plot,
		Versions: make([]VersionReconstruct, len(states)),
	}

	for i, s := range states {
		v := VersionReconstruct{
			Label:      s.Label,
			Reset:      s.Reset,
			Total:      s.Total,
			Clamped:    s.Clamped,
			Degenerate: s.Degenerate,
			TopTopic:   -1,
		}

		for topic, share := range s.Membership() {
			if share > v.TopShare {
				v.TopTopic = topic
				v.TopShare = share
			}
		}

		summary.Versions[i] = v
	}

	return summary
}

// renderReconstruct writes the reconstruction summary.
func renderReconstruct(w io.Writer, format string, summary ReconstructSummary) error {
	if format != FormatTable {
		return encode(w, format, summary)
	}

	warn := color.New(color.FgYellow).SprintFunc()

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Version", "Reset", "Tokens", "Clamped", "Top topic", "Share"})

	clamped := 0

	for _, v := range summary.Versions {
		top, share := "-", "-"
		if v.TopTopic >= 0 {
			top = strconv.Itoa(v.TopTopic)
			share = fmt.Sprintf("%.1f%%", v.TopShare*percentValue)
		}

		if v.Degenerate {
			top, share = warn("degenerate"), "-"
		}

		clamped += v.Clamped

		tbl.AppendRow(table.Row{v.Label, v.Reset, humanize.Comma(v.Total), v.Clamped, top, share})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d versions", len(summary.Versions)), "", "", clamped, "", ""})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	done := color.New(color.FgGreen)
	done.Fprintf(w, "Wrote %s\n", summary.Outputs.Percent)
	done.Fprintf(w, "Wrote %s\n", summary.Outputs.Counts)

	if summary.Plot != "" {
		done.Fprintf(w, "Wrote %s\n", summary.Plot)
	}

	return nil
}
