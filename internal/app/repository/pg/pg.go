package pg

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"dubstudio/internal/app/repository"
)

// PostgresDB is the shared durable store for multi-replica deployments
type PostgresDB struct {
	*repository.CommonDB
}

// NewPostgresDB creates a new PostgresDB. Connection errors surface on first use.
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing pool
func NewWithDB(db *sql.DB) *PostgresDB {
	return &PostgresDB{CommonDB: repository.NewCommonDB(db, "postgres")}
}
