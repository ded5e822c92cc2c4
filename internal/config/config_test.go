package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wageflow/internal/domain"
	"wageflow/internal/etl"
)

func newTestLoader(env ...string) *Loader {
	l := NewLoader()
	l.environ = func() []string { return env }
	return l
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wageflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reproduce the original job with no sources", func(t *testing.T) {
		cfg, err := newTestLoader().Load(ctx, "", nil)
		require.NoError(t, err)

		assert.Equal(t, "data/LAU04000_20260129-082434.csv", cfg.Wage.Path)
		assert.Equal(t, 1, cfg.Wage.SkipLines)
		assert.Equal(t, "data/Verðbólga.csv", cfg.Inflation.Path)
		assert.Equal(t, "data/merged_data.csv", cfg.Output.Path)
		assert.Equal(t, ";", cfg.Output.Separator)
		assert.True(t, cfg.Output.BOM)
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.Equal(t, "project_data.db", cfg.Store.Path)
		assert.Equal(t, domain.DefaultTableNames(), cfg.Store.Tables())
		assert.Equal(t, 500*time.Millisecond, cfg.Trigger.Debounce)
	})

	t.Run("Should merge YAML over defaults without dropping siblings", func(t *testing.T) {
		path := writeConfigFile(t, `
wage:
  path: in/wage.csv
store:
  merged_table: merged
trigger:
  debounce: 2s
`)
		cfg, err := newTestLoader().Load(ctx, path, nil)
		require.NoError(t, err)

		assert.Equal(t, "in/wage.csv", cfg.Wage.Path)
		assert.Equal(t, ";", cfg.Wage.Separator)
		assert.Equal(t, "merged", cfg.Store.MergedTable)
		assert.Equal(t, "Verðbólga", cfg.Store.InflationTable)
		assert.Equal(t, 2*time.Second, cfg.Trigger.Debounce)
	})

	t.Run("Should let environment override YAML and overrides win last", func(t *testing.T) {
		path := writeConfigFile(t, "store:\n  path: from-file.db\n")
		l := newTestLoader(
			"WAGEFLOW_STORE_PATH=from-env.db",
			"WAGEFLOW_LOG_LEVEL=debug",
			"WAGEFLOW_WAGE_SKIP_LINES=3",
			"OTHER_STORE_PATH=ignored.db",
		)
		cfg, err := l.Load(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, "from-env.db", cfg.Store.Path)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 3, cfg.Wage.SkipLines)

		cfg, err = l.Load(ctx, path, map[string]any{"store.path": "from-flag.db"})
		require.NoError(t, err)
		assert.Equal(t, "from-flag.db", cfg.Store.Path)
	})

	t.Run("Should fail on a missing explicit config file", func(t *testing.T) {
		_, err := newTestLoader().Load(ctx, filepath.Join(t.TempDir(), "nope.yaml"), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Should reject multi-character separators", func(t *testing.T) {
		_, err := newTestLoader().Load(ctx, "", map[string]any{"output.separator": ";;"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should reject unknown store drivers", func(t *testing.T) {
		_, err := newTestLoader().Load(ctx, "", map[string]any{"store.driver": "oracle"})
		require.Error(t, err)
	})

	t.Run("Should require a host for server drivers", func(t *testing.T) {
		_, err := newTestLoader().Load(ctx, "", map[string]any{"store.driver": "postgres", "store.database": "wages"})
		require.Error(t, err)

		cfg, err := newTestLoader().Load(ctx, "", map[string]any{
			"store.driver":   "postgres",
			"store.host":     "localhost",
			"store.database": "wages",
		})
		require.NoError(t, err)
		conn := cfg.Store.Connection()
		assert.Equal(t, domain.DatabaseDriverPostgres, conn.Driver)
		assert.Equal(t, "localhost", conn.Host)
	})

	t.Run("Should reject duplicate table names", func(t *testing.T) {
		_, err := newTestLoader().Load(ctx, "", map[string]any{"store.merged_table": "Verðbólga"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both name table")
	})
}

func TestConfig_Pipeline(t *testing.T) {
	t.Run("Should wire sources, transforms, join and output from the config", func(t *testing.T) {
		cfg := Default()
		cfg.Inflation.ExtraTransforms = []etl.TransformConfig{{Type: "limit", Config: map[string]any{"count": 10}}}

		p := cfg.Pipeline()
		assert.Equal(t, "wage-inflation", p.Name)
		assert.Equal(t, "Launavísitala", p.Wage.Table)
		assert.Equal(t, 1, p.Wage.SourceCfg.Int("skipLines", 0))
		assert.Equal(t, "data/Verðbólga.csv", p.Inflation.SourceCfg.String("filePath", ""))
		assert.Equal(t, domain.ColDate, p.Join.Key)
		assert.Equal(t, []string{domain.ColCPIIndex, domain.ColInflationTarget}, p.Join.RightColumns)
		assert.Equal(t, "Launavísitala&Verðbólga", p.MergedTable)
		assert.True(t, p.Output.BOM)

		last := p.Inflation.Transforms[len(p.Inflation.Transforms)-1]
		assert.Equal(t, "limit", last.Type)

		_, err := etl.BuildTransformers(p.Wage.Transforms)
		require.NoError(t, err)
		_, err = etl.BuildTransformers(p.Inflation.Transforms)
		require.NoError(t, err)
	})

	t.Run("Should download inputs given as URLs", func(t *testing.T) {
		cfg := Default()
		cfg.Inflation.Path = "https://example.org/verdbolga.csv"
		p := cfg.Pipeline()
		assert.Equal(t, "http_delimited", p.Inflation.SourceType)
		assert.Equal(t, "https://example.org/verdbolga.csv", p.Inflation.SourceCfg.String("url", ""))
		assert.Empty(t, p.Inflation.SourceCfg.String("filePath", ""))
		assert.Equal(t, "delimited_file", p.Wage.SourceType)
	})

	t.Run("Should report the renamed merged columns", func(t *testing.T) {
		assert.Equal(t, domain.DefaultMergedColumns(), Default().MergedColumns())
	})

	t.Run("Should map sqlite path onto the connection host", func(t *testing.T) {
		cfg := Default()
		conn := cfg.Store.Connection()
		assert.Equal(t, domain.DatabaseDriverSQLite, conn.Driver)
		assert.Equal(t, "project_data.db", conn.Host)
	})
}
