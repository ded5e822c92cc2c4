package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"wageflow/internal/dbclient"
	"wageflow/internal/etl"
)

// ── Table persistence ──────────────────────────────────────
// Every pipeline table is a plain SQL table plus catalog rows in
// etl_table_columns recording the declared type of each column.

var _ etl.Store = (*Store)(nil)

// Write persists records under table. SyncReplace drops and recreates the
// table inside one transaction; SyncAppend requires the stored schema to
// match and only inserts.
func (s *Store) Write(ctx context.Context, table string, schema *etl.Schema, records []etl.Record, mode etl.SyncMode) (int, error) {
	if table == "" {
		return 0, fmt.Errorf("table name is required")
	}
	if schema == nil || len(schema.Fields) == 0 {
		return 0, fmt.Errorf("table %q: schema has no columns", table)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	switch mode {
	case etl.SyncReplace, "":
		if err := s.recreateTable(ctx, tx, table, schema); err != nil {
			return 0, err
		}
	case etl.SyncAppend:
		existing, err := s.describe(ctx, tx, table)
		if err != nil {
			return 0, err
		}
		if !sameSchema(existing, schema) {
			return 0, fmt.Errorf("table %q: append schema differs from stored schema", table)
		}
	default:
		return 0, fmt.Errorf("unknown sync mode %q", mode)
	}

	written, err := s.insertRows(ctx, tx, table, schema, records)
	if err != nil {
		return written, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func (s *Store) recreateTable(ctx context.Context, tx *sql.Tx, table string, schema *etl.Schema) error {
	d := s.dialect
	q := d.QuoteIdent(table)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+q); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}

	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = d.QuoteIdent(f.Name) + " " + d.ColumnType(f.Type)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", q, strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM etl_table_columns WHERE table_name = "+d.Placeholder(1), table); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	insert := fmt.Sprintf(
		"INSERT INTO etl_table_columns (table_name, position, column_name, column_type) VALUES (%s, %s, %s, %s)",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
	for i, f := range schema.Fields {
		if _, err := tx.ExecContext(ctx, insert, table, i, f.Name, f.Type); err != nil {
			return fmt.Errorf("write catalog: %w", err)
		}
	}
	return nil
}

func (s *Store) insertRows(ctx context.Context, tx *sql.Tx, table string, schema *etl.Schema, records []etl.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	d := s.dialect
	cols := make([]string, len(schema.Fields))
	marks := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = d.QuoteIdent(f.Name)
		marks[i] = d.Placeholder(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Values(schema)...); err != nil {
			return written, fmt.Errorf("insert row %d into %s: %w", i, table, err)
		}
		written++
	}
	return written, nil
}

// DescribeTable returns the declared schema of a stored table.
func (s *Store) DescribeTable(ctx context.Context, table string) (*etl.Schema, error) {
	return s.describe(ctx, s.conn, table)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) describe(ctx context.Context, q querier, table string) (*etl.Schema, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT column_name, column_type FROM etl_table_columns WHERE table_name = "+s.dialect.Placeholder(1)+" ORDER BY position",
		table)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer rows.Close()

	schema := &etl.Schema{}
	for rows.Next() {
		var f etl.Field
		if err := rows.Scan(&f.Name, &f.Type); err != nil {
			return nil, err
		}
		schema.Fields = append(schema.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	return schema, nil
}

// ListTables returns the names of all tables written through the store.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT DISTINCT table_name FROM etl_table_columns ORDER BY table_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ReadTable returns up to limit rows of table (all rows when limit <= 0),
// ordered by orderBy, or by the first column when orderBy is empty.
func (s *Store) ReadTable(ctx context.Context, table, orderBy string, limit int) (*etl.Schema, []etl.Record, error) {
	schema, err := s.DescribeTable(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	d := s.dialect
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = d.QuoteIdent(f.Name)
	}
	order := cols[0]
	if orderBy != "" {
		if schema.Index(orderBy) < 0 {
			return nil, nil, fmt.Errorf("%w: %q in %q", etl.ErrMissingColumn, orderBy, table)
		}
		order = d.QuoteIdent(orderBy)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(cols, ", "), d.QuoteIdent(table), order)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	records, err := s.queryRecords(ctx, schema, query)
	if err != nil {
		return nil, nil, err
	}
	return schema, records, nil
}

// InnerJoin joins spec.Left and spec.Right on spec.Key. Both schemas are
// read from the catalog first: the key must exist on both sides with the
// same declared type (and spec.KeyType, when set), and the carried right
// columns must exist and not collide with left columns.
func (s *Store) InnerJoin(ctx context.Context, spec etl.JoinSpec) (*etl.Schema, []etl.Record, error) {
	left, err := s.DescribeTable(ctx, spec.Left)
	if err != nil {
		return nil, nil, err
	}
	right, err := s.DescribeTable(ctx, spec.Right)
	if err != nil {
		return nil, nil, err
	}

	lk, ok := left.Field(spec.Key)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q in %q", etl.ErrMissingColumn, spec.Key, spec.Left)
	}
	rk, ok := right.Field(spec.Key)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q in %q", etl.ErrMissingColumn, spec.Key, spec.Right)
	}
	if lk.Type != rk.Type {
		return nil, nil, fmt.Errorf("%w: %s.%s is %s, %s.%s is %s",
			ErrKeyTypeMismatch, spec.Left, spec.Key, lk.Type, spec.Right, spec.Key, rk.Type)
	}
	if spec.KeyType != "" && lk.Type != spec.KeyType {
		return nil, nil, fmt.Errorf("%w: key %q is %s, want %s", ErrKeyTypeMismatch, spec.Key, lk.Type, spec.KeyType)
	}

	out := left.Clone()
	for _, name := range spec.RightColumns {
		f, ok := right.Field(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q in %q", etl.ErrMissingColumn, name, spec.Right)
		}
		if out.Index(name) >= 0 {
			return nil, nil, fmt.Errorf("%w: %q exists in both %q and %q", etl.ErrColumnCollision, name, spec.Left, spec.Right)
		}
		out.Fields = append(out.Fields, f)
	}

	d := s.dialect
	cols := make([]string, 0, len(out.Fields))
	for _, f := range left.Fields {
		cols = append(cols, "l."+d.QuoteIdent(f.Name))
	}
	for _, name := range spec.RightColumns {
		cols = append(cols, "r."+d.QuoteIdent(name))
	}
	key := d.QuoteIdent(spec.Key)
	query := fmt.Sprintf("SELECT %s FROM %s AS l INNER JOIN %s AS r ON l.%s = r.%s ORDER BY l.%s",
		strings.Join(cols, ", "), d.QuoteIdent(spec.Left), d.QuoteIdent(spec.Right), key, key, key)

	records, err := s.queryRecords(ctx, out, query)
	if err != nil {
		return nil, nil, fmt.Errorf("join %s with %s: %w", spec.Left, spec.Right, err)
	}
	return out, records, nil
}

// queryRecords runs query and maps each row positionally onto schema.
func (s *Store) queryRecords(ctx context.Context, schema *etl.Schema, query string, args ...any) ([]etl.Record, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	n := len(schema.Fields)
	var records []etl.Record
	for rows.Next() {
		values := make([]any, n)
		ptrs := make([]any, n)
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		data := make(map[string]any, n)
		for j, f := range schema.Fields {
			data[f.Name] = dbclient.NormalizeValue(values[j], f.Type)
		}
		records = append(records, etl.Record{Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return records, nil
}

func sameSchema(a, b *etl.Schema) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}
