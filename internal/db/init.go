// Package db opens the PostgreSQL database behind the table server and
// creates the per-kind tables.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/GophLibrary/internal/models"
)

// tableSchema stores every record as its JSON body keyed by identifier.
// The primary key is what rejects a second insert of the same id.
const tableSchema = `
CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY CHECK (id BETWEEN 1 AND 65535),
    body JSONB NOT NULL
);
`

// InitPostgres opens and pings the database at dsn.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// TableNames returns the salted table name of every registered kind.
func TableNames(salt string) []string {
	kinds := models.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, salt+k.TableName())
	}
	return names
}

// EnsureTables creates the salted table of every registered kind.
func EnsureTables(ctx context.Context, db *sql.DB, salt string) error {
	for _, name := range TableNames(salt) {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(tableSchema, pq.QuoteIdentifier(name))); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	return nil
}
