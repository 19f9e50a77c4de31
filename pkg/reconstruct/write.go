package reconstruct

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	percentSuffix = "-percent.csv"
	countsSuffix  = "-counts.csv"

	dirPerm = 0o755
)

// WritePercent writes one row per state: the label followed by each topic's
// membership share.
func WritePercent(w io.Writer, states []State) error {
	return writeRows(w, states, func(s State) []string {
		shares := s.Membership()

		fields := make([]string, len(shares))
		for i, share := range shares {
			fields[i] = FormatFloat(share)
		}

		return fields
	})
}

// WriteCounts writes one row per state: the label followed by each topic's
// clamped accumulated count.
func WriteCounts(w io.Writer, states []State) error {
	return writeRows(w, states, func(s State) []string {
		fields := make([]string, len(s.Counts))
		for i, count := range s.Counts {
			fields[i] = strconv.FormatInt(count, 10)
		}

		return fields
	})
}

func writeRows(w io.Writer, states []State, values func(State) []string) error {
	writer := csv.NewWriter(w)

	for _, state := range states {
		err := writer.Write(append([]string{state.Label}, values(state)...))
		if err != nil {
			return fmt.Errorf("write row %s: %w", state.Label, err)
		}
	}

	writer.Flush()

	err := writer.Error()
	if err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}

	return nil
}

// FormatFloat renders f in its shortest round-trip form, always carrying a
// decimal point or exponent: 1 is "1.0", 0.5 is "0.5".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}

	return s + ".0"
}

// Outputs names the files written by WriteFiles.
type Outputs struct {
	Percent string `json:"percent" yaml:"percent"`
	Counts  string `json:"counts"  yaml:"counts"`
}

// OutputPaths returns where WriteFiles stores the matrices for name.
func OutputPaths(dir, name string) Outputs {
	return Outputs{
		Percent: filepath.Join(dir, name+percentSuffix),
		Counts:  filepath.Join(dir, name+countsSuffix),
	}
}

// WriteFiles writes the percent and counts matrices for name into dir,
// creating dir if needed and overwriting existing files.
func WriteFiles(dir, name string, states []State) (Outputs, error) {
	out := OutputPaths(dir, name)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return Outputs{}, fmt.Errorf("create output dir: %w", err)
	}

	err = writeFile(out.Percent, states, WritePercent)
	if err != nil {
		return Outputs{}, err
	}

	err = writeFile(out.Counts, states, WriteCounts)
	if err != nil {
		return Outputs{}, err
	}

	return out, nil
}

func writeFile(path string, states []State, write func(io.Writer, []State) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	err = write(file, states)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
