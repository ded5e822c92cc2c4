package etl

import "fmt"

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Records, all destinations consume Records.
// Column order and column types live in the Schema, never in the Record.

// Field types understood by the normalizer, the store and the exporter.
const (
	FieldText   = "text"
	FieldNumber = "number"
	FieldDate   = "date" // values are "YYYY-MM-DD" strings
)

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "date"
}

// Schema describes the shape of records coming from a source.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field and whether it exists.
func (s *Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Clone returns a deep copy so transformers can reshape it freely.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return &Schema{}
	}
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	return &Schema{Fields: fields}
}

// Require fails with ErrMissingColumn if any of names is absent.
func (s *Schema) Require(names ...string) error {
	for _, n := range names {
		if s.Index(n) < 0 {
			return fmt.Errorf("%w: %q", ErrMissingColumn, n)
		}
	}
	return nil
}

// Record is a single row of data flowing through the pipeline.
type Record struct {
	Data map[string]any `json:"data"`
}

// Values returns the record's values in schema order.
func (r Record) Values(s *Schema) []any {
	out := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = r.Data[f.Name]
	}
	return out
}

// Table is a named, typed set of records.
type Table struct {
	Name    string   `json:"name"`
	Schema  *Schema  `json:"schema"`
	Records []Record `json:"records"`
}
