// Package source turns dataset files on disk into rows: CSV and JSON-array
// text, XLSX workbooks, and dated JSON artifacts in a directory.
package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/admission-watch/internal/model"
)

// Format identifies how a dataset file is parsed.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a format from the file extension. Unknown extensions
// are treated as CSV.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// FileLoader reads a dataset file into rows.
type FileLoader struct{}

// Load reads path and parses it according to its extension.
func (FileLoader) Load(ctx context.Context, path string) ([]model.Row, error) {
	return Load(ctx, path)
}

// Load reads path and parses it according to its extension.
func Load(ctx context.Context, path string) ([]model.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: context cancelled")
	}

	switch DetectFormat(path) {
	case FormatXLSX:
		return ReadXLSX(path)
	case FormatJSON:
		return LoadJSONRows(ctx, path)
	default:
		text, err := ReadText(path)
		if err != nil {
			return nil, err
		}
		return ParseCSV(text), nil
	}
}

// ReadText reads a text file as UTF-8. A leading byte order mark is
// stripped, and UTF-16 input with a BOM is transcoded.
func ReadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "source: read %s", path)
	}
	return DecodeText(raw)
}

// DecodeText decodes raw bytes as UTF-8, honoring any byte order mark.
func DecodeText(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), decoder))
	if err != nil {
		return "", eris.Wrap(err, "source: decode text")
	}
	return string(out), nil
}
