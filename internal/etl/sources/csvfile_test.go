package sources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wageflow/internal/etl"
	"wageflow/internal/testutil"
)

func readFile(t *testing.T, cfg etl.SourceConfig) (*etl.Schema, []etl.Record, error) {
	t.Helper()
	src, err := etl.GetSource(DelimitedFileType)
	require.NoError(t, err)
	return src.Read(context.Background(), cfg)
}

func TestDelimitedFileSource_Read(t *testing.T) {
	t.Run("Should skip the title line and read raw text cells", func(t *testing.T) {
		path := testutil.WriteWageCSV(t, t.TempDir(), "2020M01;150.2;0.4;3.1", "2020M02;151.0;;..")

		schema, records, err := readFile(t, etl.SourceConfig{"filePath": path, "delimiter": ";", "skipLines": 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mánuður", "Vísitölugildi", "Mánaðarbreyting, %", "Ársbreyting, %"}, schema.FieldNames())
		for _, f := range schema.Fields {
			assert.Equal(t, etl.FieldText, f.Type)
		}
		require.Len(t, records, 2)
		assert.Equal(t, "2020M01", records[0].Data["Mánuður"])
		assert.Equal(t, "150.2", records[0].Data["Vísitölugildi"])
		assert.Nil(t, records[1].Data["Mánaðarbreyting, %"])
		assert.Equal(t, "..", records[1].Data["Ársbreyting, %"])
	})

	t.Run("Should consume a UTF-8 byte-order mark", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "bom.csv"),
			"\ufeff"+testutil.InflationHeader+"\n01.01.2020;200,0;2,5\n")

		schema, records, err := readFile(t, etl.SourceConfig{"filePath": path, "encoding": "utf-8-sig"})
		require.NoError(t, err)
		assert.Equal(t, "Dagsetning", schema.Fields[0].Name)
		assert.Equal(t, "200,0", records[0].Data["Vísitala neysluverðs"])
	})

	t.Run("Should decode legacy encodings", func(t *testing.T) {
		// "Mánuður" in windows-1252.
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "latin.csv"), "M\xe1nu\xf0ur;x\n1;2\n")

		schema, _, err := readFile(t, etl.SourceConfig{"filePath": path, "encoding": "windows-1252"})
		require.NoError(t, err)
		assert.Equal(t, "Mánuður", schema.Fields[0].Name)
	})

	t.Run("Should generate column names without a header", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "plain.csv"), "a;b\nc;d\n")

		schema, records, err := readFile(t, etl.SourceConfig{"filePath": path, "hasHeader": false})
		require.NoError(t, err)
		assert.Equal(t, []string{"col_1", "col_2"}, schema.FieldNames())
		assert.Len(t, records, 2)
	})
}

func TestDelimitedFileSource_Errors(t *testing.T) {
	t.Run("Should report a missing file", func(t *testing.T) {
		_, _, err := readFile(t, etl.SourceConfig{"filePath": filepath.Join(t.TempDir(), "missing.csv")})
		assert.ErrorIs(t, err, etl.ErrSourceNotFound)
	})

	t.Run("Should detect a separator mismatch", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "comma.csv"), "a,b,c\n1,2,3\n")
		_, _, err := readFile(t, etl.SourceConfig{"filePath": path, "delimiter": ";"})
		assert.ErrorIs(t, err, etl.ErrSeparatorMismatch)
		assert.ErrorIs(t, err, etl.ErrParse)
	})

	t.Run("Should reject an empty file", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "empty.csv"), "")
		_, _, err := readFile(t, etl.SourceConfig{"filePath": path})
		assert.ErrorIs(t, err, etl.ErrParse)
	})

	t.Run("Should reject more skipped lines than the file has", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "short.csv"), "a;b\n")
		_, _, err := readFile(t, etl.SourceConfig{"filePath": path, "skipLines": 5})
		assert.ErrorIs(t, err, etl.ErrParse)
	})

	t.Run("Should reject rows with the wrong number of fields", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "ragged.csv"), "a;b\n1;2;3\n")
		_, _, err := readFile(t, etl.SourceConfig{"filePath": path})
		assert.ErrorIs(t, err, etl.ErrParse)
	})

	t.Run("Should reject duplicate headers", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "dup.csv"), "a;a\n1;2\n")
		_, _, err := readFile(t, etl.SourceConfig{"filePath": path})
		assert.ErrorIs(t, err, etl.ErrColumnCollision)
	})

	t.Run("Should reject unsupported encodings and delimiters", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "ok.csv"), "a;b\n")
		_, _, err := readFile(t, etl.SourceConfig{"filePath": path, "encoding": "klingon"})
		assert.Error(t, err)

		_, _, err = readFile(t, etl.SourceConfig{"filePath": path, "delimiter": "::"})
		assert.Error(t, err)
	})
}

func TestDelimitedFileSource_Discover(t *testing.T) {
	src, err := etl.GetSource(DelimitedFileType)
	require.NoError(t, err)

	t.Run("Should read only the header after skipped lines", func(t *testing.T) {
		path := testutil.WriteWageCSV(t, t.TempDir(), "2020M01;150.2;0.4;3.1")

		schema, err := src.Discover(context.Background(), etl.SourceConfig{"filePath": path, "skipLines": 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mánuður", "Vísitölugildi", "Mánaðarbreyting, %", "Ársbreyting, %"}, schema.FieldNames())
	})

	t.Run("Should fail like Read on a missing file", func(t *testing.T) {
		_, err := src.Discover(context.Background(), etl.SourceConfig{"filePath": filepath.Join(t.TempDir(), "nope.csv")})
		assert.ErrorIs(t, err, etl.ErrSourceNotFound)
	})
}
