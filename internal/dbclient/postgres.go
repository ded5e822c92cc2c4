package dbclient

import (
	"fmt"
	"strconv"
	"strings"

	"wageflow/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a DatabaseConnection.
func buildPostgresDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pqValue(conn.Host), port, pqValue(conn.Username), pqValue(password), pqValue(conn.Database), pqValue(sslMode),
	)
}

// pqValue quotes a keyword/value connection parameter when it is empty or
// contains spaces, quotes or backslashes.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) ColumnType(fieldType string) string {
	switch fieldType {
	case "number":
		return "DOUBLE PRECISION"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}

func (postgresDialect) KeyType() string { return "VARCHAR(255)" }

func (postgresDialect) TimestampType() string { return "TIMESTAMPTZ" }
