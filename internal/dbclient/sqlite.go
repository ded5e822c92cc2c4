package dbclient

import (
	"strings"

	"wageflow/internal/domain"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN opens the file at conn.Host in WAL mode with a busy timeout.
func buildSQLiteDSN(conn *domain.DatabaseConnection) string {
	return conn.Host + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

// Dates are stored as TEXT: a DATE declaration would make the driver
// hand back time.Time values.
func (sqliteDialect) ColumnType(fieldType string) string {
	if fieldType == "number" {
		return "REAL"
	}
	return "TEXT"
}

func (sqliteDialect) KeyType() string { return "TEXT" }

func (sqliteDialect) TimestampType() string { return "DATETIME" }
