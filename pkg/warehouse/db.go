package warehouse

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Open opens (or creates) the DuckDB database file at path. The connection
// pool is pinned to a single connection: DuckDB is an embedded store and
// the pipeline serializes loads per table anyway.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("warehouse path is required")
	}
	return open(path)
}

// OpenInMemory opens an ephemeral in-memory database, used by tests and
// the examples.
func OpenInMemory() (*sql.DB, error) {
	return open("")
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return db, nil
}
