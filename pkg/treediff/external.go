package treediff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/topicdelta/pkg/corpus"
)

// diffExitDifferences is the exit status diff uses when the inputs differ.
const diffExitDifferences = 1

// External compares trees by running a diff executable over both
// directories and parsing its normal-format output.
type External struct {
	// Binary is the diff executable, "diff" when empty.
	Binary string
	// IgnoreWhitespace passes -w.
	IgnoreWhitespace bool
}

// NewExternal creates a comparator backed by the diff executable.
func NewExternal(binary string, ignoreWhitespace bool) *External {
	if binary == "" {
		binary = "diff"
	}

	return &External{Binary: binary, IgnoreWhitespace: ignoreWhitespace}
}

// Name implements Comparator.
func (e *External) Name() string {
	return KindExternal
}

// Compare implements Comparator. Both directories must share a parent so
// diff names them by their version labels. The whole output is buffered
// before parsing. Entries diff reports that are not documents, such as
// subdirectories present on one side and hidden files, are dropped.
func (e *External) Compare(ctx context.Context, prevDir, curDir string) (*Result, error) {
	root := filepath.Dir(filepath.Clean(prevDir))
	if filepath.Dir(filepath.Clean(curDir)) != root {
		return nil, fmt.Errorf("%w: %s, %s", ErrDifferentRoots, prevDir, curDir)
	}

	prevDocs, err := corpus.ListDocuments(prevDir)
	if err != nil {
		return nil, err
	}

	curDocs, err := corpus.ListDocuments(curDir)
	if err != nil {
		return nil, err
	}

	prevLabel := filepath.Base(prevDir)
	curLabel := filepath.Base(curDir)

	args := make([]string, 0, 3)
	if e.IgnoreWhitespace {
		args = append(args, "-w")
	}

	args = append(args, prevLabel+"/", curLabel+"/")

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Dir = root

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) || exitErr.ExitCode() != diffExitDifferences {
			return nil, fmt.Errorf("run %s %s: %w: %s",
				e.Binary, strings.Join(args, " "), runErr, strings.TrimSpace(stderr.String()))
		}
	}

	result, err := ParseDiffOutput(&stdout, prevLabel, curLabel)
	if err != nil {
		return nil, err
	}

	result.restrict(prevDocs, curDocs)

	return result, nil
}
