// Package reconstruct rebuilds per-version topic counts and memberships from
// the delta topic matrices produced by a model trained on delta artifacts.
package reconstruct

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Sentinel errors for matrix parsing and validation.
var (
	// ErrMalformedRow indicates a row with a bad count or a wrong number of columns.
	ErrMalformedRow = errors.New("malformed matrix row")
	// ErrDuplicateVersion indicates a version label that appears twice in one matrix.
	ErrDuplicateVersion = errors.New("duplicate version label")
	// ErrShapeMismatch is wrapped by every add/del disagreement.
	ErrShapeMismatch = errors.New("addition and deletion matrices disagree")
	// ErrRowCountMismatch indicates matrices with different numbers of versions.
	ErrRowCountMismatch = fmt.Errorf("%w: row count", ErrShapeMismatch)
	// ErrVersionOrderMismatch indicates matrices listing versions in a different order.
	ErrVersionOrderMismatch = fmt.Errorf("%w: version order", ErrShapeMismatch)
	// ErrTopicCountMismatch indicates matrices with different numbers of topics.
	ErrTopicCountMismatch = fmt.Errorf("%w: topic count", ErrShapeMismatch)
)

// Row is one version's topic counts.
type Row struct {
	Label  string
	Counts []int64
}

// Matrix is a version-by-topic count matrix in file order.
type Matrix struct {
	Rows []Row
	// Topics is the number of count columns in every row.
	Topics int
}

// Labels returns the version labels in row order.
func (m *Matrix) Labels() []string {
	labels := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		labels[i] = row.Label
	}

	return labels
}

// ReadMatrix parses comma-separated rows of "label,count,count,...". Blank
// lines are skipped. Every row must carry the same number of counts.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	matrix := &Matrix{Topics: -1}
	seen := make(map[string]struct{})

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}

		line, _ := reader.FieldPos(0)

		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if matrix.Topics == -1 {
			matrix.Topics = len(row.Counts)
		} else if len(row.Counts) != matrix.Topics {
			return nil, fmt.Errorf("line %d: %w: %d topics, want %d",
				line, ErrMalformedRow, len(row.Counts), matrix.Topics)
		}

		if _, dup := seen[row.Label]; dup {
			return nil, fmt.Errorf("line %d: %w: %q", line, ErrDuplicateVersion, row.Label)
		}

		seen[row.Label] = struct{}{}
		matrix.Rows = append(matrix.Rows, row)
	}

	if matrix.Topics == -1 {
		matrix.Topics = 0
	}

	return matrix, nil
}

func parseRow(record []string) (Row, error) {
	label := strings.TrimSpace(record[0])
	if label == "" {
		return Row{}, fmt.Errorf("%w: empty version label", ErrMalformedRow)
	}

	if len(record) < 2 {
		return Row{}, fmt.Errorf("%w: version %q has no topic counts", ErrMalformedRow, label)
	}

	counts := make([]int64, len(record)-1)

	for i, field := range record[1:] {
		value, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return Row{}, fmt.Errorf("%w: version %q topic %d: %w", ErrMalformedRow, label, i, err)
		}

		counts[i] = value
	}

	return Row{Label: label, Counts: counts}, nil
}

// ReadMatrixFile reads a matrix from path.
func ReadMatrixFile(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix: %w", err)
	}
	defer file.Close()

	matrix, err := ReadMatrix(file)
	if err != nil {
		return nil, fmt.Errorf("read matrix %s: %w", path, err)
	}

	return matrix, nil
}

// Validate checks that add and del describe the same versions in the same
// order over the same topics. It runs before any accumulation.
func Validate(add, del *Matrix) error {
	if len(add.Rows) != len(del.Rows) {
		return fmt.Errorf("%w: %d additions rows, %d deletions rows",
			ErrRowCountMismatch, len(add.Rows), len(del.Rows))
	}

	for i := range add.Rows {
		if add.Rows[i].Label != del.Rows[i].Label {
			return fmt.Errorf("%w: row %d is %q in additions, %q in deletions",
				ErrVersionOrderMismatch, i, add.Rows[i].Label, del.Rows[i].Label)
		}
	}

	if len(add.Rows) > 0 && add.Topics != del.Topics {
		return fmt.Errorf("%w: %d additions topics, %d deletions topics",
			ErrTopicCountMismatch, add.Topics, del.Topics)
	}

	return nil
}
