package etl

import (
	"fmt"

	"wageflow/internal/domain"
)

// ── Pipeline definition ────────────────────────────────────
// A Pipeline loads two datasets, persists both, joins them on a
// shared date column and exports the join.

// TransformConfig is a declarative transform definition.
type TransformConfig struct {
	Type   string         `json:"type" yaml:"type"` // "parse_date" | "decimal_comma" | "type_cast" | "rename" | "select" | "filter" | "sort" | "limit" | "dedupe"
	Config map[string]any `json:"config" yaml:"config"`
}

// DatasetConfig describes one input: where to read it, how to normalize it
// and which table it is stored under.
type DatasetConfig struct {
	Name            string            `json:"name"`
	SourceType      string            `json:"sourceType"`
	SourceCfg       SourceConfig      `json:"sourceConfig"`
	RequiredColumns []string          `json:"requiredColumns,omitempty"`
	Transforms      []TransformConfig `json:"transforms,omitempty"`
	Table           string            `json:"table"`
}

// JoinConfig names the join key and the right-hand columns carried into the merge.
type JoinConfig struct {
	Key          string   `json:"key"`
	RightColumns []string `json:"rightColumns"`
}

// OutputConfig describes the exported delimited file.
type OutputConfig struct {
	Path      string `json:"path"`
	Delimiter string `json:"delimiter"`
	BOM       bool   `json:"bom"`
}

// Pipeline is the full job definition.
type Pipeline struct {
	Name        string        `json:"name"`
	Wage        DatasetConfig `json:"wage"`
	Inflation   DatasetConfig `json:"inflation"`
	Join        JoinConfig    `json:"join"`
	MergedTable string        `json:"mergedTable"`
	Output      OutputConfig  `json:"output"`
}

// Dataset returns the dataset called name ("wage" or "inflation").
func (p *Pipeline) Dataset(name string) (DatasetConfig, error) {
	switch name {
	case p.Wage.Name:
		return p.Wage, nil
	case p.Inflation.Name:
		return p.Inflation, nil
	default:
		return DatasetConfig{}, fmt.Errorf("unknown dataset %q (want %q or %q)", name, p.Wage.Name, p.Inflation.Name)
	}
}

// WageColumns configures the wage index normalization.
type WageColumns struct {
	Period        string // "YYYYMmm" token, dropped after conversion
	PeriodLayout  string
	Index         string
	MonthlyChange string // optional column; empty disables it
	YearlyChange  string // optional column; empty disables it
	Date          string // name of the converted date column
	Renames       map[string]string
}

// DefaultWageColumns matches the published wage index export.
func DefaultWageColumns() WageColumns {
	return WageColumns{
		Period:        domain.ColWagePeriod,
		PeriodLayout:  "2006M01",
		Index:         domain.ColWageIndex,
		MonthlyChange: domain.ColWageMonthlyChange,
		YearlyChange:  domain.ColWageYearlyChange,
		Date:          domain.ColDate,
		Renames: map[string]string{
			domain.ColWageIndex:         domain.ColWageIndexRenamed,
			domain.ColWageMonthlyChange: domain.ColWageMonthlyChangeRenamed,
			domain.ColWageYearlyChange:  domain.ColWageYearlyChangeRenamed,
		},
	}
}

// Required lists the columns the wage file must have.
func (c WageColumns) Required() []string {
	cols := []string{c.Period, c.Index}
	for _, opt := range []string{c.MonthlyChange, c.YearlyChange} {
		if opt != "" {
			cols = append(cols, opt)
		}
	}
	return cols
}

// Transforms builds the wage normalization chain: month token to date,
// strict index cast, lenient change casts, then collision-free renames.
func (c WageColumns) Transforms() []TransformConfig {
	ts := []TransformConfig{
		{Type: "parse_date", Config: map[string]any{
			"field": c.Period, "layout": c.PeriodLayout, "target": c.Date, "dropSource": true,
		}},
		{Type: "type_cast", Config: map[string]any{"field": c.Index, "castType": "number"}},
	}
	for _, opt := range []string{c.MonthlyChange, c.YearlyChange} {
		if opt != "" {
			ts = append(ts, TransformConfig{Type: "type_cast", Config: map[string]any{
				"field": opt, "castType": "number", "optional": true,
			}})
		}
	}
	if len(c.Renames) > 0 {
		mapping := make(map[string]any, len(c.Renames))
		for k, v := range c.Renames {
			mapping[k] = v
		}
		ts = append(ts, TransformConfig{Type: "rename", Config: map[string]any{"mapping": mapping}})
	}
	return ts
}

// InflationColumns configures the inflation normalization.
type InflationColumns struct {
	Date       string
	DateLayout string
	CPI        string
	Target     string
}

// DefaultInflationColumns matches the published inflation export.
func DefaultInflationColumns() InflationColumns {
	return InflationColumns{
		Date:       domain.ColDate,
		DateLayout: "02.01.2006",
		CPI:        domain.ColCPIIndex,
		Target:     domain.ColInflationTarget,
	}
}

// Required lists the columns the inflation file must have.
func (c InflationColumns) Required() []string {
	return []string{c.Date, c.CPI, c.Target}
}

// Transforms builds the inflation normalization chain.
func (c InflationColumns) Transforms() []TransformConfig {
	return []TransformConfig{
		{Type: "parse_date", Config: map[string]any{"field": c.Date, "layout": c.DateLayout}},
		{Type: "decimal_comma", Config: map[string]any{"fields": []any{c.CPI, c.Target}}},
	}
}

// BuildTransformers converts declarative TransformConfig into Transformer instances.
// Unknown types and incomplete configs are rejected.
func BuildTransformers(configs []TransformConfig) ([]Transformer, error) {
	ts := make([]Transformer, 0, len(configs))

	for i, tc := range configs {
		cfg := SourceConfig(tc.Config)
		switch tc.Type {
		case "parse_date":
			field, layout := cfg.String("field", ""), cfg.String("layout", "")
			if field == "" || layout == "" {
				return nil, fmt.Errorf("transform %d (parse_date): field and layout are required", i)
			}
			ts = append(ts, &ParseDateTransform{
				Field:      field,
				Layout:     layout,
				Target:     cfg.String("target", ""),
				DropSource: cfg.Bool("dropSource", false),
			})

		case "decimal_comma":
			fields := stringSlice(tc.Config["fields"])
			if len(fields) == 0 {
				return nil, fmt.Errorf("transform %d (decimal_comma): fields are required", i)
			}
			ts = append(ts, &DecimalCommaTransform{Fields: fields})

		case "type_cast":
			field, castType := cfg.String("field", ""), cfg.String("castType", "")
			if field == "" || castType == "" {
				return nil, fmt.Errorf("transform %d (type_cast): field and castType are required", i)
			}
			ts = append(ts, &TypeCastTransform{Field: field, CastType: castType, Optional: cfg.Bool("optional", false)})

		case "rename":
			mapping := stringMap(tc.Config["mapping"])
			if len(mapping) == 0 {
				return nil, fmt.Errorf("transform %d (rename): mapping is required", i)
			}
			ts = append(ts, &RenameTransform{Mapping: mapping})

		case "select":
			fields := stringSlice(tc.Config["fields"])
			if len(fields) == 0 {
				return nil, fmt.Errorf("transform %d (select): fields are required", i)
			}
			ts = append(ts, &SelectTransform{Fields: fields})

		case "filter":
			field, op := cfg.String("field", ""), cfg.String("op", "")
			if field == "" || op == "" {
				return nil, fmt.Errorf("transform %d (filter): field and op are required", i)
			}
			ts = append(ts, &FilterTransform{Field: field, Op: op, Value: tc.Config["value"]})

		case "sort":
			field := cfg.String("field", "")
			if field == "" {
				return nil, fmt.Errorf("transform %d (sort): field is required", i)
			}
			ts = append(ts, &SortTransform{Field: field, Direction: cfg.String("direction", "asc")})

		case "limit":
			count := cfg.Int("count", 0)
			if count <= 0 {
				return nil, fmt.Errorf("transform %d (limit): count must be positive", i)
			}
			ts = append(ts, NewLimitTransform(count))

		case "dedupe":
			key := cfg.String("key", "")
			if key == "" {
				return nil, fmt.Errorf("transform %d (dedupe): key is required", i)
			}
			ts = append(ts, NewDedupeTransform(key))

		default:
			return nil, fmt.Errorf("transform %d: unknown type %q", i, tc.Type)
		}
	}

	return ts, nil
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, x := range s {
			out = append(out, fmt.Sprint(x))
		}
		return out
	default:
		return nil
	}
}

func stringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, x := range m {
			out[k] = fmt.Sprint(x)
		}
		return out
	default:
		return nil
	}
}
