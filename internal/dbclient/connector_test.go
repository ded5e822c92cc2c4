package dbclient

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wageflow/internal/domain"
)

func TestBuildDSN(t *testing.T) {
	t.Run("Should add pragmas to the sqlite path", func(t *testing.T) {
		dsn, err := BuildDSN(&domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Host: "/tmp/etl.db"}, "")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/etl.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	})

	t.Run("Should default the postgres port and sslmode", func(t *testing.T) {
		dsn, err := BuildDSN(&domain.DatabaseConnection{
			Driver: domain.DatabaseDriverPostgres, Host: "db", Database: "etl", Username: "etl",
		}, "secret")
		require.NoError(t, err)
		assert.Equal(t, "host=db port=5432 user=etl password=secret dbname=etl sslmode=disable", dsn)
	})

	t.Run("Should quote postgres values with spaces and quotes", func(t *testing.T) {
		dsn, err := BuildDSN(&domain.DatabaseConnection{
			Driver: domain.DatabaseDriverPostgres, Host: "db", Database: "etl", Username: "etl", SSLMode: "require",
		}, `it's a\secret`)
		require.NoError(t, err)
		assert.Equal(t, `host=db port=5432 user=etl password='it\'s a\\secret' dbname=etl sslmode=require`, dsn)
		assert.Equal(t, "''", pqValue(""))
	})

	t.Run("Should request parsed times and TLS from mysql", func(t *testing.T) {
		dsn, err := BuildDSN(&domain.DatabaseConnection{
			Driver: domain.DatabaseDriverMySQL, Host: "db", Port: 3307, Database: "etl", Username: "etl", SSLMode: "require",
		}, "p@ss:word")
		require.NoError(t, err)
		assert.Contains(t, dsn, "charset=utf8mb4")

		parsed, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "etl", parsed.User)
		assert.Equal(t, "p@ss:word", parsed.Passwd)
		assert.Equal(t, "db:3307", parsed.Addr)
		assert.Equal(t, "etl", parsed.DBName)
		assert.True(t, parsed.ParseTime)
		assert.Equal(t, "true", parsed.TLSConfig)
	})

	t.Run("Should reject unknown drivers", func(t *testing.T) {
		_, err := BuildDSN(&domain.DatabaseConnection{Driver: "oracle"}, "")
		assert.Error(t, err)
		_, err = NewDialect("oracle")
		assert.Error(t, err)
	})
}

func TestDialects(t *testing.T) {
	t.Run("Should quote identifiers with embedded quotes", func(t *testing.T) {
		assert.Equal(t, `"Launavísitala&Verðbólga"`, sqliteDialect{}.QuoteIdent("Launavísitala&Verðbólga"))
		assert.Equal(t, `"a""b"`, postgresDialect{}.QuoteIdent(`a"b`))
		assert.Equal(t, "`Mánaðarbreyting, %`", mysqlDialect{}.QuoteIdent("Mánaðarbreyting, %"))
		assert.Equal(t, "`a``b`", mysqlDialect{}.QuoteIdent("a`b"))
	})

	t.Run("Should number postgres placeholders", func(t *testing.T) {
		assert.Equal(t, "$3", postgresDialect{}.Placeholder(3))
		assert.Equal(t, "?", sqliteDialect{}.Placeholder(3))
	})

	t.Run("Should keep sqlite dates as text", func(t *testing.T) {
		assert.Equal(t, "TEXT", sqliteDialect{}.ColumnType("date"))
		assert.Equal(t, "REAL", sqliteDialect{}.ColumnType("number"))
		assert.Equal(t, "DATE", postgresDialect{}.ColumnType("date"))
		assert.Equal(t, "DOUBLE", mysqlDialect{}.ColumnType("number"))
	})
}

func TestNormalizeValue(t *testing.T) {
	t.Run("Should turn driver numbers into float64", func(t *testing.T) {
		assert.Equal(t, 2.5, NormalizeValue([]byte("2.5"), "number"))
		assert.Equal(t, 3.0, NormalizeValue(int64(3), "number"))
		assert.Equal(t, float64(float32(1.5)), NormalizeValue(float32(1.5), "number"))
	})

	t.Run("Should render dates as calendar days", func(t *testing.T) {
		assert.Equal(t, "2020-01-01", NormalizeValue(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "date"))
		assert.Equal(t, "2020-01-01", NormalizeValue("2020-01-01T00:00:00Z", "date"))
		assert.Equal(t, "2020-01-01", NormalizeValue([]byte("2020-01-01 00:00:00"), "date"))
		assert.Equal(t, "2020-01-01", NormalizeValue("2020-01-01", "date"))
	})

	t.Run("Should keep NULL and text", func(t *testing.T) {
		assert.Nil(t, NormalizeValue(nil, "number"))
		assert.Equal(t, "abc", NormalizeValue([]byte("abc"), "text"))
	})
}
