package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wageflow/internal/domain"
)

// Dialect hides the SQL differences between the supported store engines.
type Dialect interface {
	// DriverName is the database/sql driver name.
	DriverName() string

	// QuoteIdent quotes a table or column name. Names may contain spaces,
	// punctuation and non-ASCII letters.
	QuoteIdent(name string) string

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder(n int) string

	// ColumnType maps a logical field type ("text" | "number" | "date") to a column type.
	ColumnType(fieldType string) string

	// KeyType is the column type used for identifiers and names in primary keys.
	KeyType() string

	// TimestampType is the column type used for run timestamps.
	TimestampType() string
}

// NewDialect returns the dialect for a store driver.
func NewDialect(driver domain.DatabaseDriver) (Dialect, error) {
	switch driver {
	case domain.DatabaseDriverSQLite, "":
		return sqliteDialect{}, nil
	case domain.DatabaseDriverMySQL:
		return mysqlDialect{}, nil
	case domain.DatabaseDriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// BuildDSN constructs the driver-specific connection string.
// The password must be provided separately (from a SecretStore).
func BuildDSN(conn *domain.DatabaseConnection, password string) (string, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite, "":
		return buildSQLiteDSN(conn), nil
	case domain.DatabaseDriverMySQL:
		return buildMySQLDSN(conn, password), nil
	case domain.DatabaseDriverPostgres:
		return buildPostgresDSN(conn, password), nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}

// Open opens and pings a connection pool for conn.
func Open(ctx context.Context, conn *domain.DatabaseConnection, password string) (*sql.DB, Dialect, error) {
	dialect, err := NewDialect(conn.Driver)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := BuildDSN(conn, password)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect.DriverName(), err)
	}
	if dialect.DriverName() == "sqlite" {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", dialect.DriverName(), err)
	}
	return db, dialect, nil
}
