package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/topicdelta/pkg/units"
)

// censusSniffLength bounds how much of each document is read for
// content-based language disambiguation (.h is C, C++ or Objective-C).
const censusSniffLength = 16 * units.KiB

// LanguageOther is reported for documents enry cannot classify.
const LanguageOther = "Other"

// Census counts the documents of a version directory by detected language.
func Census(dir string, docs []string) (map[string]int, error) {
	counts := make(map[string]int)

	for _, doc := range docs {
		head, err := readHead(filepath.Join(dir, doc))
		if err != nil {
			return nil, fmt.Errorf("census %s: %w", doc, err)
		}

		lang := enry.GetLanguage(doc, head)
		if lang == "" {
			lang = LanguageOther
		}

		counts[lang]++
	}

	return counts, nil
}

func readHead(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, censusSniffLength)

	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:n], nil
}
