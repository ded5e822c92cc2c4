package sources

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"wageflow/internal/etl"
)

// ── Delimited File Source ───────────────────────────────────
// Reads records from a local delimited text file (CSV, semicolon
// separated exports, ...). Every cell is emitted as raw text.

// DelimitedFileType is the registry key of the delimited file source.
const DelimitedFileType = "delimited_file"

// candidateSeparators are checked against the header when the declared
// separator looks wrong.
var candidateSeparators = []rune{';', ',', '\t', '|'}

type delimitedFileSource struct{}

func init() { etl.RegisterSource(&delimitedFileSource{}) }

func (s *delimitedFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  DelimitedFileType,
		Label: "Delimited File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the delimited text file"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ";", Help: "Single-character field separator"},
			{Key: "encoding", Label: "Encoding", Type: "string", Default: "utf-8", Help: "Text encoding label (utf-8, windows-1252, iso-8859-1, ...)"},
			{Key: "skipLines", Label: "Skip Lines", Type: "number", Default: "0", Help: "Descriptive lines to discard before the header"},
			{Key: "hasHeader", Label: "Has Header", Type: "select", Options: []string{"true", "false"}, Default: "true", Help: "Whether the first kept row contains column names"},
		},
	}
}

func (s *delimitedFileSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	headers, _, err := readDelimitedFile(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return headerSchema(headers), nil
}

func (s *delimitedFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, []etl.Record, error) {
	headers, rows, err := readDelimitedFile(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return headerSchema(headers), toRecords(headers, rows), nil
}

func toRecords(headers []string, rows [][]string) []etl.Record {
	records := make([]etl.Record, 0, len(rows))
	for _, row := range rows {
		data := make(map[string]any, len(headers))
		for j, h := range headers {
			data[h] = rawValue(row[j])
		}
		records = append(records, etl.Record{Data: data})
	}
	return records
}

func headerSchema(headers []string) *etl.Schema {
	schema := &etl.Schema{Fields: make([]etl.Field, len(headers))}
	for i, h := range headers {
		schema.Fields[i] = etl.Field{Name: h, Type: etl.FieldText}
	}
	return schema
}

// rawValue trims a cell; empty cells become NULL.
func rawValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func readDelimitedFile(ctx context.Context, cfg etl.SourceConfig) ([]string, [][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	filePath := cfg.String("filePath", "")
	if filePath == "" {
		return nil, nil, fmt.Errorf("filePath is required")
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s: %w", etl.ErrSourceNotFound, filePath, err)
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return parseDelimited(f, filePath, cfg)
}

// parseDelimited decodes r with the configured encoding, discards the
// configured number of leading lines and splits the rest into a header and
// rows. name only appears in error messages.
func parseDelimited(r io.Reader, name string, cfg etl.SourceConfig) ([]string, [][]string, error) {
	delim, err := parseDelimiter(cfg.String("delimiter", ";"))
	if err != nil {
		return nil, nil, err
	}
	decoder, err := newDecoder(cfg.String("encoding", "utf-8"))
	if err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(transform.NewReader(r, decoder))

	// Discard descriptive lines above the header.
	skip := cfg.Int("skipLines", 0)
	for i := 0; i < skip; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, nil, fmt.Errorf("%w: %s has fewer than %d line(s) to skip", etl.ErrParse, name, skip)
			}
			return nil, nil, fmt.Errorf("read %s: %w", name, err)
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, nil, fmt.Errorf("%w: %s: %w", etl.ErrParse, name, err)
		}
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s: empty file", etl.ErrParse, name)
	}
	if err := checkSeparator(records[0], delim); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	var headers []string
	var rows [][]string
	if cfg.Bool("hasHeader", true) {
		headers = make([]string, len(records[0]))
		seen := make(map[string]bool, len(headers))
		for i, h := range records[0] {
			h = strings.TrimSpace(h)
			if h == "" {
				h = fmt.Sprintf("col_%d", i+1)
			}
			if seen[h] {
				return nil, nil, fmt.Errorf("%w: duplicate header %q in %s", etl.ErrColumnCollision, h, name)
			}
			seen[h] = true
			headers[i] = h
		}
		rows = records[1:]
	} else {
		// Generate column names: col_1, col_2, ...
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i+1)
		}
		rows = records
	}

	return headers, rows, nil
}

// checkSeparator rejects a header that was not split by the declared
// separator but visibly contains another one.
func checkSeparator(header []string, delim rune) error {
	if len(header) != 1 {
		return nil
	}
	for _, c := range candidateSeparators {
		if c != delim && strings.ContainsRune(header[0], c) {
			return fmt.Errorf("%w: %w: declared %q but header looks %q-separated", etl.ErrParse, etl.ErrSeparatorMismatch, delim, c)
		}
	}
	return nil
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// newDecoder resolves an encoding label. A leading UTF-8 byte-order mark
// is always consumed.
func newDecoder(label string) (transform.Transformer, error) {
	switch strings.ToLower(label) {
	case "utf-8-sig", "utf8-sig", "utf8":
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}
