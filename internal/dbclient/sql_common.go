package dbclient

import (
	"strconv"
	"strings"
	"time"
)

// NormalizeValue converts a value scanned from any supported driver into
// the pipeline's value space: nil, float64 for numbers, "YYYY-MM-DD" for
// dates and string for everything else.
func NormalizeValue(v any, fieldType string) any {
	if v == nil {
		return nil
	}
	switch fieldType {
	case "number":
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int64:
			return float64(n)
		case []byte:
			if f, err := strconv.ParseFloat(string(n), 64); err == nil {
				return f
			}
			return string(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
			return n
		}
	case "date":
		switch d := v.(type) {
		case time.Time:
			return d.UTC().Format("2006-01-02")
		case []byte:
			return dateText(string(d))
		case string:
			return dateText(d)
		}
	}
	return formatValue(v)
}

// dateText keeps only the calendar day of a date rendered with a time part.
func dateText(s string) string {
	if i := strings.IndexAny(s, "T "); i == 10 {
		return s[:10]
	}
	return s
}

func formatValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
