package config

import (
	"time"

	"wageflow/internal/domain"
	"wageflow/internal/etl"
)

// Config is the full runtime configuration of a pipeline.
type Config struct {
	// Name identifies the pipeline in logs and run history.
	Name string `koanf:"name" validate:"required"`
	// Timeout bounds a single run. Zero disables it.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`

	Wage      WageConfig      `koanf:"wage"`
	Inflation InflationConfig `koanf:"inflation"`
	Output    OutputConfig    `koanf:"output"`
	Store     StoreConfig     `koanf:"store"`
	Log       LogConfig       `koanf:"log"`
	Trigger   TriggerConfig   `koanf:"trigger"`
}

// WageConfig describes the wage index input file.
type WageConfig struct {
	Path      string `koanf:"path" validate:"required"`
	Separator string `koanf:"separator" validate:"len=1"`
	Encoding  string `koanf:"encoding" validate:"required"`
	SkipLines int    `koanf:"skip_lines" validate:"min=0"`

	PeriodColumn        string `koanf:"period_column" validate:"required"`
	PeriodLayout        string `koanf:"period_layout" validate:"required"`
	IndexColumn         string `koanf:"index_column" validate:"required"`
	MonthlyChangeColumn string `koanf:"monthly_change_column"`
	YearlyChangeColumn  string `koanf:"yearly_change_column"`
	DateColumn          string `koanf:"date_column" validate:"required"`

	// Renamed column names, unique across both inputs.
	IndexName         string `koanf:"index_name" validate:"required"`
	MonthlyChangeName string `koanf:"monthly_change_name"`
	YearlyChangeName  string `koanf:"yearly_change_name"`

	ExtraTransforms []etl.TransformConfig `koanf:"extra_transforms"`
}

// InflationConfig describes the inflation input file.
type InflationConfig struct {
	Path      string `koanf:"path" validate:"required"`
	Separator string `koanf:"separator" validate:"len=1"`
	Encoding  string `koanf:"encoding" validate:"required"`
	SkipLines int    `koanf:"skip_lines" validate:"min=0"`

	DateColumn   string `koanf:"date_column" validate:"required"`
	DateLayout   string `koanf:"date_layout" validate:"required"`
	CPIColumn    string `koanf:"cpi_column" validate:"required"`
	TargetColumn string `koanf:"target_column" validate:"required"`

	ExtraTransforms []etl.TransformConfig `koanf:"extra_transforms"`
}

// OutputConfig describes the exported merged file.
type OutputConfig struct {
	Path      string `koanf:"path" validate:"required"`
	Separator string `koanf:"separator" validate:"len=1"`
	BOM       bool   `koanf:"bom"`
}

// StoreConfig selects and addresses the relational store.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres mysql"`
	// Path is the database file for sqlite.
	Path     string `koanf:"path" validate:"required_if=Driver sqlite"`
	Host     string `koanf:"host" validate:"required_unless=Driver sqlite"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	Database string `koanf:"database" validate:"required_unless=Driver sqlite"`
	Username string `koanf:"username"`
	SSLMode  string `koanf:"ssl_mode"`
	// PasswordSecret references the password, e.g. "env:PGPASSWORD" or "keychain:wageflow-db".
	PasswordSecret string `koanf:"password_secret"`

	WageTable      string `koanf:"wage_table" validate:"required"`
	InflationTable string `koanf:"inflation_table" validate:"required"`
	MergedTable    string `koanf:"merged_table" validate:"required"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// TriggerConfig configures re-runs in watch mode.
type TriggerConfig struct {
	// Schedule is a standard five-field cron expression; empty disables it.
	Schedule string        `koanf:"schedule"`
	Watch    bool          `koanf:"watch"`
	Debounce time.Duration `koanf:"debounce" validate:"min=0"`
}

// Default returns the configuration of the original batch job.
func Default() *Config {
	tables := domain.DefaultTableNames()
	return &Config{
		Name:    "wage-inflation",
		Timeout: 5 * time.Minute,
		Wage: WageConfig{
			Path:                "data/LAU04000_20260129-082434.csv",
			Separator:           ";",
			Encoding:            "utf-8",
			SkipLines:           1,
			PeriodColumn:        domain.ColWagePeriod,
			PeriodLayout:        "2006M01",
			IndexColumn:         domain.ColWageIndex,
			MonthlyChangeColumn: domain.ColWageMonthlyChange,
			YearlyChangeColumn:  domain.ColWageYearlyChange,
			DateColumn:          domain.ColDate,
			IndexName:           domain.ColWageIndexRenamed,
			MonthlyChangeName:   domain.ColWageMonthlyChangeRenamed,
			YearlyChangeName:    domain.ColWageYearlyChangeRenamed,
		},
		Inflation: InflationConfig{
			Path:         "data/Verðbólga.csv",
			Separator:    ";",
			Encoding:     "utf-8",
			DateColumn:   domain.ColDate,
			DateLayout:   "02.01.2006",
			CPIColumn:    domain.ColCPIIndex,
			TargetColumn: domain.ColInflationTarget,
		},
		Output: OutputConfig{
			Path:      "data/merged_data.csv",
			Separator: ";",
			BOM:       true,
		},
		Store: StoreConfig{
			Driver:         string(domain.DatabaseDriverSQLite),
			Path:           "project_data.db",
			WageTable:      tables.Wage,
			InflationTable: tables.Inflation,
			MergedTable:    tables.Merged,
		},
		Log: LogConfig{
			Level: "info",
		},
		Trigger: TriggerConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}
