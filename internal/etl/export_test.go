package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporter_Export(t *testing.T) {
	schema := &Schema{Fields: []Field{
		{Name: "Laun_Vísitala", Type: FieldNumber},
		{Name: "Dagsetning", Type: FieldDate},
		{Name: "Verðbólgumarkmið", Type: FieldNumber},
	}}
	records := []Record{
		rec("Laun_Vísitala", 150.2, "Dagsetning", "2020-01-01", "Verðbólgumarkmið", 2.5),
		rec("Laun_Vísitala", 151.0, "Dagsetning", "2020-02-01", "Verðbólgumarkmið", nil),
	}

	t.Run("Should write a semicolon file with a byte-order mark", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "merged.csv")
		n, err := CSVExporter{}.Export(context.Background(), OutputConfig{Path: path, Delimiter: ";", BOM: true}, schema, records)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "\ufeffLaun_Vísitala;Dagsetning;Verðbólgumarkmið\n150.2;2020-01-01;2.5\n151;2020-02-01;\n", string(data))
	})

	t.Run("Should omit the byte-order mark when disabled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "merged.csv")
		_, err := CSVExporter{}.Export(context.Background(), OutputConfig{Path: path, Delimiter: ","}, schema, records[:1])
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Laun_Vísitala,Dagsetning,Verðbólgumarkmið\n150.2,2020-01-01,2.5\n", string(data))
	})

	t.Run("Should overwrite an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "merged.csv")
		require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the export\n"), 0o644))

		_, err := CSVExporter{}.Export(context.Background(), OutputConfig{Path: path, Delimiter: ";"}, schema, nil)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Laun_Vísitala;Dagsetning;Verðbólgumarkmið\n", string(data))
	})

	t.Run("Should reject a multi-character delimiter", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "merged.csv")
		_, err := CSVExporter{}.Export(context.Background(), OutputConfig{Path: path, Delimiter: ";;"}, schema, records)
		assert.Error(t, err)
		assert.NoFileExists(t, path)
	})

	t.Run("Should require a path", func(t *testing.T) {
		_, err := CSVExporter{}.Export(context.Background(), OutputConfig{}, schema, records)
		assert.Error(t, err)
	})
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "3.5", FormatValue(3.5))
	assert.Equal(t, "200", FormatValue(200.0))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "2020-01-01", FormatValue(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "abc", FormatValue([]byte("abc")))
}
