package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wageflow/internal/dbclient"
	"wageflow/internal/domain"
)

var (
	// ErrTableNotFound is returned when a table has never been written to the store.
	ErrTableNotFound = errors.New("table not found")
	// ErrKeyTypeMismatch is returned when join keys do not share one declared type.
	ErrKeyTypeMismatch = errors.New("join key type mismatch")
)

// Store wraps the relational database the pipeline persists to.
// It is opened once per process and closed explicitly.
type Store struct {
	conn    *sql.DB
	dialect dbclient.Dialect
}

// Open opens (or creates, for SQLite) the store described by conn and
// runs its migrations.
func Open(ctx context.Context, conn *domain.DatabaseConnection, password string) (*Store, error) {
	if conn.Driver == domain.DatabaseDriverSQLite || conn.Driver == "" {
		if conn.Host == "" {
			return nil, fmt.Errorf("sqlite store path is required")
		}
		if err := os.MkdirAll(filepath.Dir(conn.Host), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, dialect, err := dbclient.Open(ctx, conn, password)
	if err != nil {
		return nil, err
	}

	s := &Store{conn: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	d := s.dialect
	migrations := []struct {
		name string
		sql  string
	}{
		// Schema catalog: the declared type of every column of every pipeline table.
		{"etl_table_columns", fmt.Sprintf(`CREATE TABLE IF NOT EXISTS etl_table_columns (
			table_name %[1]s NOT NULL,
			position INTEGER NOT NULL,
			column_name TEXT NOT NULL,
			column_type VARCHAR(16) NOT NULL,
			PRIMARY KEY (table_name, position)
		)`, d.KeyType())},
		{"etl_run_logs", fmt.Sprintf(`CREATE TABLE IF NOT EXISTS etl_run_logs (
			id %[1]s PRIMARY KEY,
			pipeline TEXT NOT NULL,
			started_at %[2]s NOT NULL,
			finished_at %[2]s NOT NULL,
			status VARCHAR(16) NOT NULL,
			wage_rows INTEGER NOT NULL DEFAULT 0,
			inflation_rows INTEGER NOT NULL DEFAULT 0,
			merged_rows INTEGER NOT NULL DEFAULT 0,
			output_path TEXT NOT NULL,
			error TEXT NOT NULL
		)`, d.KeyType(), d.TimestampType())},
	}

	for _, m := range migrations {
		if _, err := s.conn.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}
	return nil
}
