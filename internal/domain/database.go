package domain

// DatabaseDriver represents the type of database engine backing the store.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds the metadata for connecting to the relational store.
// The password is looked up separately in a SecretStore.
type DatabaseConnection struct {
	Driver   DatabaseDriver `json:"driver"`
	Host     string         `json:"host"`     // hostname or file path (sqlite)
	Port     int            `json:"port"`     // 0 for sqlite
	Database string         `json:"database"` // db name or empty for sqlite
	Username string         `json:"username"`
	SSLMode  string         `json:"sslMode"`
}

// TableNames are the logical names the pipeline persists its three tables under.
type TableNames struct {
	Wage      string `json:"wage"`
	Inflation string `json:"inflation"`
	Merged    string `json:"merged"`
}

// DefaultTableNames returns the names used by the original batch job.
func DefaultTableNames() TableNames {
	return TableNames{
		Wage:      "Launavísitala",
		Inflation: "Verðbólga",
		Merged:    "Launavísitala&Verðbólga",
	}
}
