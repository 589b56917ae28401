// Package export writes query results to delimited text, spreadsheet, or
// JSON record files. The format follows the file extension.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	JSON Format = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// FormatFor picks the export format from a file name.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	case ".json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q (want .csv, .xlsx or .json)", ErrUnsupportedFormat, filepath.Ext(path))
}

// WriteFile exports res to path.
func WriteFile(path string, res core.Result) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, format, res); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

// WriteAll exports res to every path concurrently. Each writer only reads
// res. A path listed more than once is written once.
func WriteAll(ctx context.Context, paths []string, res core.Result) error {
	seen := make(map[string]struct{}, len(paths))
	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := FormatFor(p); err != nil {
			return err
		}
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, p)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range unique {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return WriteFile(p, res)
		})
	}
	return g.Wait()
}

// Write encodes res to w in the given format.
func Write(w io.Writer, format Format, res core.Result) error {
	switch format {
	case CSV:
		return writeCSV(w, res)
	case XLSX:
		return writeXLSX(w, res)
	case JSON:
		return writeJSON(w, res)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

// Headers returns the column titles of res.
func Headers(res core.Result) []string {
	out := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		out[i] = string(c)
	}
	return out
}

// Cell renders one column of a row as text.
func Cell(row core.Row, col core.Column) string {
	switch col {
	case core.ColumnID:
		return strconv.FormatInt(row.ID, 10)
	case core.ColumnDate:
		return row.Date.String()
	case core.ColumnCategory:
		return row.Category
	case core.ColumnAmount:
		return row.Amount.StringFixed(2)
	}
	return ""
}
