package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"wageflow/internal/etl"
)

// Output formats.
const (
	OutputFormatJSON  = "json"
	OutputFormatTable = "table"
)

// resolveFormat picks table output for terminals and JSON otherwise,
// unless the user asked for one explicitly.
func resolveFormat(explicit string, w io.Writer) string {
	if explicit != "" {
		return explicit
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return OutputFormatTable
	}
	return OutputFormatJSON
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// writeRecords prints records in schema order.
func writeRecords(w io.Writer, format string, schema *etl.Schema, records []etl.Record) error {
	if format == OutputFormatJSON {
		rows := make([]map[string]any, len(records))
		for i, r := range records {
			rows[i] = r.Data
		}
		return writeJSON(w, rows)
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(schema.Fields))
		for j, f := range schema.Fields {
			row[j] = etl.FormatValue(r.Data[f.Name])
		}
		rows[i] = row
	}
	return renderTable(w, schema.FieldNames(), rows)
}

func writeSchema(w io.Writer, format string, schema *etl.Schema) error {
	if format == OutputFormatJSON {
		return writeJSON(w, schema.Fields)
	}
	rows := make([][]string, len(schema.Fields))
	for i, f := range schema.Fields {
		rows[i] = []string{strconv.Itoa(i + 1), f.Name, f.Type}
	}
	return renderTable(w, []string{"#", "Column", "Type"}, rows)
}
