package dbclient

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"wageflow/internal/domain"
)

// buildMySQLDSN formats the connection through the driver's own Config so
// passwords with '@' or ':' survive. Dates come back as time.Time.
func buildMySQLDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(port))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if conn.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

type mysqlDialect struct{}

func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) ColumnType(fieldType string) string {
	switch fieldType {
	case "number":
		return "DOUBLE"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}

func (mysqlDialect) KeyType() string { return "VARCHAR(255)" }

func (mysqlDialect) TimestampType() string { return "DATETIME(6)" }
