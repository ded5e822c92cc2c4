package etl

import "errors"

var (
	// ErrSourceNotFound is returned when a source path does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSeparatorMismatch is returned when the declared field separator does not match the file content.
	ErrSeparatorMismatch = errors.New("separator mismatch")
	// ErrParse is returned for malformed delimited content.
	ErrParse = errors.New("parse error")
	// ErrTypeCoercion is returned when a value cannot be converted to its declared type.
	ErrTypeCoercion = errors.New("type coercion failed")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrColumnCollision is returned when two columns would end up with the same name.
	ErrColumnCollision = errors.New("column name collision")
)
