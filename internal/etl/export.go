package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"wageflow/internal/domain"
)

// ── Exporter ───────────────────────────────────────────────
// Writes a table back out as delimited text.

// Exporter serializes a table to its final destination.
type Exporter interface {
	Export(ctx context.Context, out OutputConfig, schema *Schema, records []Record) (int, error)
}

// CSVExporter writes delimited UTF-8 text, optionally prefixed with a
// byte-order mark so spreadsheet tools detect the encoding.
type CSVExporter struct{}

// Export overwrites out.Path with a header row followed by one line per record.
func (CSVExporter) Export(ctx context.Context, out OutputConfig, schema *Schema, records []Record) (int, error) {
	if out.Path == "" {
		return 0, fmt.Errorf("output path is required")
	}
	delim := ';'
	if out.Delimiter != "" {
		d := []rune(out.Delimiter)
		if len(d) != 1 {
			return 0, fmt.Errorf("delimiter must be a single character, got %q", out.Delimiter)
		}
		delim = d[0]
	}

	if dir := filepath.Dir(out.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(out.Path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var tw *transform.Writer
	if out.BOM {
		tw = transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
		w = tw
	}

	n, err := writeDelimited(ctx, w, delim, schema, records)
	if err != nil {
		return n, err
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return n, fmt.Errorf("flush output: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close output: %w", err)
	}
	return n, nil
}

func writeDelimited(ctx context.Context, w io.Writer, delim rune, schema *Schema, records []Record) (int, error) {
	cw := csv.NewWriter(w)
	cw.Comma = delim

	if err := cw.Write(schema.FieldNames()); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(schema.Fields))
	written := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		for j, f := range schema.Fields {
			row[j] = FormatValue(rec.Data[f.Name])
		}
		if err := cw.Write(row); err != nil {
			return written, fmt.Errorf("write row %d: %w", i, err)
		}
		written++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("flush csv: %w", err)
	}
	return written, nil
}

// FormatValue renders a record value as text: NULL is empty, numbers use
// the shortest exact representation, dates are YYYY-MM-DD.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.Format(domain.DateLayout)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
