package config

import (
	"strings"

	"wageflow/internal/domain"
	"wageflow/internal/etl"
	"wageflow/internal/etl/sources"
)

// Pipeline converts the configuration into the job definition the engine runs.
func (c *Config) Pipeline() *etl.Pipeline {
	wageCols := etl.WageColumns{
		Period:        c.Wage.PeriodColumn,
		PeriodLayout:  c.Wage.PeriodLayout,
		Index:         c.Wage.IndexColumn,
		MonthlyChange: c.Wage.MonthlyChangeColumn,
		YearlyChange:  c.Wage.YearlyChangeColumn,
		Date:          c.Wage.DateColumn,
		Renames:       map[string]string{},
	}
	for from, to := range map[string]string{
		c.Wage.IndexColumn:         c.Wage.IndexName,
		c.Wage.MonthlyChangeColumn: c.Wage.MonthlyChangeName,
		c.Wage.YearlyChangeColumn:  c.Wage.YearlyChangeName,
	} {
		if from != "" && to != "" && from != to {
			wageCols.Renames[from] = to
		}
	}

	inflationCols := etl.InflationColumns{
		Date:       c.Inflation.DateColumn,
		DateLayout: c.Inflation.DateLayout,
		CPI:        c.Inflation.CPIColumn,
		Target:     c.Inflation.TargetColumn,
	}

	return &etl.Pipeline{
		Name: c.Name,
		Wage: etl.DatasetConfig{
			Name:            "wage",
			SourceType:      sourceType(c.Wage.Path),
			SourceCfg:       sourceConfig(c.Wage.Path, c.Wage.Separator, c.Wage.Encoding, c.Wage.SkipLines),
			RequiredColumns: wageCols.Required(),
			Transforms:      append(wageCols.Transforms(), c.Wage.ExtraTransforms...),
			Table:           c.Store.WageTable,
		},
		Inflation: etl.DatasetConfig{
			Name:            "inflation",
			SourceType:      sourceType(c.Inflation.Path),
			SourceCfg:       sourceConfig(c.Inflation.Path, c.Inflation.Separator, c.Inflation.Encoding, c.Inflation.SkipLines),
			RequiredColumns: inflationCols.Required(),
			Transforms:      append(inflationCols.Transforms(), c.Inflation.ExtraTransforms...),
			Table:           c.Store.InflationTable,
		},
		Join: etl.JoinConfig{
			Key:          c.Wage.DateColumn,
			RightColumns: []string{c.Inflation.CPIColumn, c.Inflation.TargetColumn},
		},
		MergedTable: c.Store.MergedTable,
		Output: etl.OutputConfig{
			Path:      c.Output.Path,
			Delimiter: c.Output.Separator,
			BOM:       c.Output.BOM,
		},
	}
}

// isURL reports whether an input path points at an HTTP endpoint.
func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func sourceType(path string) string {
	if isURL(path) {
		return sources.HTTPDelimitedType
	}
	return sources.DelimitedFileType
}

func sourceConfig(path, separator, encoding string, skipLines int) etl.SourceConfig {
	cfg := etl.SourceConfig{
		"delimiter": separator,
		"encoding":  encoding,
		"skipLines": skipLines,
		"hasHeader": true,
	}
	if isURL(path) {
		cfg["url"] = path
	} else {
		cfg["filePath"] = path
	}
	return cfg
}

// Connection returns the store connection described by the store section.
func (s *StoreConfig) Connection() *domain.DatabaseConnection {
	conn := &domain.DatabaseConnection{
		Driver:   domain.DatabaseDriver(s.Driver),
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Username: s.Username,
		SSLMode:  s.SSLMode,
	}
	if conn.Driver == domain.DatabaseDriverSQLite || conn.Driver == "" {
		conn.Host = s.Path
	}
	return conn
}

// Tables returns the three configured table names.
func (s *StoreConfig) Tables() domain.TableNames {
	return domain.TableNames{Wage: s.WageTable, Inflation: s.InflationTable, Merged: s.MergedTable}
}

// MergedColumns returns the column names the merged table ends up with.
func (c *Config) MergedColumns() domain.MergedColumns {
	renamed := func(col, name string) string {
		if col == "" {
			return ""
		}
		if name != "" {
			return name
		}
		return col
	}
	return domain.MergedColumns{
		Date:          c.Wage.DateColumn,
		WageIndex:     renamed(c.Wage.IndexColumn, c.Wage.IndexName),
		MonthlyChange: renamed(c.Wage.MonthlyChangeColumn, c.Wage.MonthlyChangeName),
		YearlyChange:  renamed(c.Wage.YearlyChangeColumn, c.Wage.YearlyChangeName),
		CPIIndex:      c.Inflation.CPIColumn,
		Target:        c.Inflation.TargetColumn,
	}
}
