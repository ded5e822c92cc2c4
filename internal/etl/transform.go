package etl

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"wageflow/internal/domain"
)

// ── Transformer ────────────────────────────────────────────
// Transformers modify records in-flight between source and destination.
// They are composable: each reshapes the schema once, then maps every
// record. A record-level error aborts the whole run.
//
// Pattern: Benthos processor chain.

// Transformer processes a schema and then each record of that schema.
// Transform returns (transformed record, keep, err). If keep is false the record is dropped.
type Transformer interface {
	TransformSchema(*Schema) (*Schema, error)
	Transform(Record) (Record, bool, error)
}

// nullTokens are placeholders statistical agencies publish for missing values.
var nullTokens = map[string]bool{"": true, "..": true, ".": true, "-": true, "…": true}

// ── Normalizing Transforms ─────────────────────────────────

// ParseDateTransform parses Field with Layout and stores the canonical date in Target.
// Layout "2006M01" turns "1989M01" into 1989-01-01; "02.01.2006" reads day.month.year.
type ParseDateTransform struct {
	Field      string
	Layout     string
	Target     string // defaults to Field
	DropSource bool
}

func (t *ParseDateTransform) target() string {
	if t.Target == "" {
		return t.Field
	}
	return t.Target
}

func (t *ParseDateTransform) TransformSchema(s *Schema) (*Schema, error) {
	if err := s.Require(t.Field); err != nil {
		return nil, err
	}
	out := s.Clone()
	target := t.target()
	if target == t.Field {
		out.Fields[out.Index(t.Field)].Type = FieldDate
		return out, nil
	}
	if out.Index(target) >= 0 {
		return nil, fmt.Errorf("%w: %q already exists", ErrColumnCollision, target)
	}
	if t.DropSource {
		i := out.Index(t.Field)
		out.Fields = append(out.Fields[:i], out.Fields[i+1:]...)
	}
	out.Fields = append(out.Fields, Field{Name: target, Type: FieldDate})
	return out, nil
}

func (t *ParseDateTransform) Transform(r Record) (Record, bool, error) {
	raw, ok := r.Data[t.Field].(string)
	if !ok {
		return r, false, fmt.Errorf("%w: %q: missing date value", ErrTypeCoercion, t.Field)
	}
	d, err := ParseDate(raw, t.Layout)
	if err != nil {
		return r, false, fmt.Errorf("%w: %q: %w", ErrTypeCoercion, t.Field, err)
	}
	if t.DropSource && t.target() != t.Field {
		delete(r.Data, t.Field)
	}
	r.Data[t.target()] = d.Format(domain.DateLayout)
	return r, true, nil
}

// ParseDate parses a date token with layout and truncates it to a calendar day.
func ParseDate(raw, layout string) (time.Time, error) {
	d, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DecimalCommaTransform converts comma-decimal strings ("3,5") to numbers.
type DecimalCommaTransform struct {
	Fields []string
}

func (t *DecimalCommaTransform) TransformSchema(s *Schema) (*Schema, error) {
	if err := s.Require(t.Fields...); err != nil {
		return nil, err
	}
	out := s.Clone()
	for _, f := range t.Fields {
		out.Fields[out.Index(f)].Type = FieldNumber
	}
	return out, nil
}

func (t *DecimalCommaTransform) Transform(r Record) (Record, bool, error) {
	for _, f := range t.Fields {
		v, err := ParseDecimal(r.Data[f], true)
		if err != nil {
			return r, false, fmt.Errorf("%w: %q: %w", ErrTypeCoercion, f, err)
		}
		r.Data[f] = v
	}
	return r, true, nil
}

// ParseDecimal converts v to a finite float64. With comma set, every ","
// is read as the decimal separator.
func ParseDecimal(v any, comma bool) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing value")
	case string:
		s := strings.TrimSpace(n)
		if comma {
			s = strings.ReplaceAll(s, ",", ".")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a finite number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

// TypeCastTransform converts a field's value to a target type.
// Casting is strict: a value that does not convert fails the run.
// Optional fields also accept a comma decimal separator ("0,4").
type TypeCastTransform struct {
	Field    string
	CastType string // "number" | "text"
	Optional bool   // empty and placeholder values become NULL
}

func (t *TypeCastTransform) TransformSchema(s *Schema) (*Schema, error) {
	if err := s.Require(t.Field); err != nil {
		return nil, err
	}
	out := s.Clone()
	switch t.CastType {
	case "number":
		out.Fields[out.Index(t.Field)].Type = FieldNumber
	case "text", "string":
		out.Fields[out.Index(t.Field)].Type = FieldText
	default:
		return nil, fmt.Errorf("unsupported cast type %q", t.CastType)
	}
	return out, nil
}

func (t *TypeCastTransform) Transform(r Record) (Record, bool, error) {
	v := r.Data[t.Field]
	if t.Optional {
		if s, ok := v.(string); v == nil || ok && nullTokens[strings.TrimSpace(s)] {
			r.Data[t.Field] = nil
			return r, true, nil
		}
	}
	switch t.CastType {
	case "number":
		f, err := ParseDecimal(v, t.Optional)
		if err != nil {
			return r, false, fmt.Errorf("%w: %q: %w", ErrTypeCoercion, t.Field, err)
		}
		r.Data[t.Field] = f
	default:
		if v != nil {
			r.Data[t.Field] = fmt.Sprint(v)
		}
	}
	return r, true, nil
}

// ── Built-in Transforms ────────────────────────────────────

// FilterTransform drops records where the given field does not match the value.
type FilterTransform struct {
	Field string
	Op    string // "eq" | "neq" | "gt" | "lt" | "contains"
	Value any
}

func (t *FilterTransform) TransformSchema(s *Schema) (*Schema, error) {
	if err := s.Require(t.Field); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *FilterTransform) Transform(r Record) (Record, bool, error) {
	v, ok := r.Data[t.Field]
	if !ok || v == nil {
		return r, false, nil
	}
	switch t.Op {
	case "eq":
		return r, fmt.Sprint(v) == fmt.Sprint(t.Value), nil
	case "neq":
		return r, fmt.Sprint(v) != fmt.Sprint(t.Value), nil
	case "contains":
		return r, strings.Contains(fmt.Sprint(v), fmt.Sprint(t.Value)), nil
	case "gt":
		return r, compareValues(v, t.Value) > 0, nil
	case "lt":
		return r, compareValues(v, t.Value) < 0, nil
	default:
		return r, false, fmt.Errorf("unsupported filter op %q", t.Op)
	}
}

// RenameTransform renames fields in a record. Columns absent from the
// schema are skipped.
type RenameTransform struct {
	Mapping map[string]string // oldName → newName
}

func (t *RenameTransform) TransformSchema(s *Schema) (*Schema, error) {
	out := s.Clone()
	for i, f := range out.Fields {
		if n, ok := t.Mapping[f.Name]; ok {
			out.Fields[i].Name = n
		}
	}
	seen := make(map[string]bool, len(out.Fields))
	for _, f := range out.Fields {
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: %q", ErrColumnCollision, f.Name)
		}
		seen[f.Name] = true
	}
	return out, nil
}

func (t *RenameTransform) Transform(r Record) (Record, bool, error) {
	renamed := make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		if n, ok := t.Mapping[k]; ok {
			k = n
		}
		renamed[k] = v
	}
	r.Data = renamed
	return r, true, nil
}

// SelectTransform keeps only the specified fields, in the given order.
type SelectTransform struct {
	Fields []string
}

func (t *SelectTransform) TransformSchema(s *Schema) (*Schema, error) {
	out := &Schema{Fields: make([]Field, 0, len(t.Fields))}
	for _, name := range t.Fields {
		f, ok := s.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		out.Fields = append(out.Fields, f)
	}
	return out, nil
}

func (t *SelectTransform) Transform(r Record) (Record, bool, error) {
	filtered := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		filtered[f] = r.Data[f]
	}
	r.Data = filtered
	return r, true, nil
}

// DedupeTransform drops records with duplicate values for the given key.
type DedupeTransform struct {
	Key  string
	seen map[string]bool
}

func NewDedupeTransform(key string) *DedupeTransform {
	return &DedupeTransform{Key: key, seen: make(map[string]bool)}
}

func (t *DedupeTransform) TransformSchema(s *Schema) (*Schema, error) {
	if err := s.Require(t.Key); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *DedupeTransform) Transform(r Record) (Record, bool, error) {
	v := fmt.Sprint(r.Data[t.Key])
	if t.seen[v] {
		return r, false, nil
	}
	t.seen[v] = true
	return r, true, nil
}

// SortTransform sorts all collected records by a field.
// NOTE: This is a batch transform: it must collect ALL records, so it's
// applied after the streaming phase by the engine, not per-record.
type SortTransform struct {
	Field     string
	Direction string // "asc" | "desc"
}

func (t *SortTransform) TransformSchema(s *Schema) (*Schema, error) {
	if err := s.Require(t.Field); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *SortTransform) Transform(r Record) (Record, bool, error) {
	// Pass-through in streaming mode; actual sort is handled by the engine.
	return r, true, nil
}

// LimitTransform caps the number of records.
type LimitTransform struct {
	Count int
	seen  int
}

func NewLimitTransform(count int) *LimitTransform {
	return &LimitTransform{Count: count}
}

func (t *LimitTransform) TransformSchema(s *Schema) (*Schema, error) { return s, nil }

func (t *LimitTransform) Transform(r Record) (Record, bool, error) {
	t.seen++
	return r, t.seen <= t.Count, nil
}

// ── Batch Transforms ──────────────────────────────────────

// ApplyBatchSort sorts records if a SortTransform exists in the chain.
func ApplyBatchSort(records []Record, ts []Transformer) []Record {
	for _, t := range ts {
		if st, ok := t.(*SortTransform); ok && st.Field != "" {
			sorted := make([]Record, len(records))
			copy(sorted, records)
			sortRecords(sorted, st.Field, st.Direction)
			return sorted
		}
	}
	return records
}

func sortRecords(records []Record, field, direction string) {
	dir := 1
	if direction == "desc" {
		dir = -1
	}
	sort.SliceStable(records, func(i, j int) bool {
		return compareValues(records[i].Data[field], records[j].Data[field])*dir < 0
	})
}

func compareValues(a, b any) int {
	fa, aOk := toFloatSafe(a)
	fb, bOk := toFloatSafe(b)
	if aOk && bOk {
		if fa < fb {
			return -1
		}
		if fa > fb {
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloatSafe(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ── Helpers ────────────────────────────────────────────────

// TransformSchema runs the schema through every transformer of the chain.
func TransformSchema(s *Schema, ts []Transformer) (*Schema, error) {
	var err error
	for _, t := range ts {
		if s, err = t.TransformSchema(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ApplyTransformers runs a chain of transformers on a record.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool, error) {
	for _, t := range ts {
		var keep bool
		var err error
		r, keep, err = t.Transform(r)
		if err != nil || !keep {
			return r, false, err
		}
	}
	return r, true, nil
}
