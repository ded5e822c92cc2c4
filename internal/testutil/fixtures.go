// Package testutil writes input files shaped like the published wage and
// inflation exports.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WageHeader is the header row of the wage index export.
const WageHeader = "Mánuður;Vísitölugildi;Mánaðarbreyting, %;Ársbreyting, %"

// InflationHeader is the header row of the inflation export.
const InflationHeader = "Dagsetning;Vísitala neysluverðs;Verðbólgumarkmið"

// WriteWageCSV writes a wage export with its descriptive title line.
// rows are raw semicolon-separated lines.
func WriteWageCSV(t testing.TB, dir string, rows ...string) string {
	t.Helper()
	lines := append([]string{`"Launavísitala eftir mánuðum"`, WageHeader}, rows...)
	return WriteFile(t, filepath.Join(dir, "wage.csv"), strings.Join(lines, "\n")+"\n")
}

// WriteInflationCSV writes an inflation export. rows are raw semicolon-separated lines.
func WriteInflationCSV(t testing.TB, dir string, rows ...string) string {
	t.Helper()
	lines := append([]string{InflationHeader}, rows...)
	return WriteFile(t, filepath.Join(dir, "inflation.csv"), strings.Join(lines, "\n")+"\n")
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
