// Package repository provides persistence implementations for the record
// tables served by the table server.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/GophLibrary/internal/models"
)

var (
	// ErrConflict is returned when inserting an id that already exists.
	ErrConflict = errors.New("entry already exists")
	// ErrNotFound is returned when the addressed id does not exist.
	ErrNotFound = errors.New("entry does not exist")
	// ErrNoTable is returned when the table itself does not exist.
	ErrNoTable = errors.New("table does not exist")
)

// PostgreSQL error codes the repository translates.
const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
)

// PostgresTableRepository stores record bodies in PostgreSQL tables of
// shape (id INTEGER PRIMARY KEY, body JSONB).
type PostgresTableRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresTableRepository creates a new PostgresTableRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresTableRepository(db *sql.DB) *PostgresTableRepository {
	return &PostgresTableRepository{DB: db}
}

// SelectAll returns every body of table ordered by id.
func (r *PostgresTableRepository) SelectAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT body FROM %s ORDER BY id`, pq.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("SelectAll: %w", translate(err))
	}
	defer rows.Close()

	bodies := []json.RawMessage{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		bodies = append(bodies, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return bodies, nil
}

// SelectByID returns the body stored under id, or ErrNotFound.
func (r *PostgresTableRepository) SelectByID(ctx context.Context, table string, id models.ID) (json.RawMessage, error) {
	var body []byte
	err := r.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT body FROM %s WHERE id = $1`, pq.QuoteIdentifier(table)),
		int64(id),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("SelectByID: %w", translate(err))
	}
	return json.RawMessage(body), nil
}

// Insert stores body under id. The primary key makes this a conditional
// write: a concurrent insert of the same id yields ErrConflict.
func (r *PostgresTableRepository) Insert(ctx context.Context, table string, id models.ID, body json.RawMessage) error {
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, body) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, pq.QuoteIdentifier(table)),
		int64(id), string(body),
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", translate(err))
	}
	return expectOne(res, ErrConflict)
}

// Update replaces the body stored under id, or returns ErrNotFound.
func (r *PostgresTableRepository) Update(ctx context.Context, table string, id models.ID, body json.RawMessage) error {
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET body = $2 WHERE id = $1`, pq.QuoteIdentifier(table)),
		int64(id), string(body),
	)
	if err != nil {
		return fmt.Errorf("Update: %w", translate(err))
	}
	return expectOne(res, ErrNotFound)
}

// Delete removes the row stored under id, or returns ErrNotFound.
func (r *PostgresTableRepository) Delete(ctx context.Context, table string, id models.ID) error {
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, pq.QuoteIdentifier(table)),
		int64(id),
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", translate(err))
	}
	return expectOne(res, ErrNotFound)
}

func expectOne(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

// translate maps PostgreSQL errors onto the repository sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return ErrConflict
		case codeUndefinedTable:
			return ErrNoTable
		}
	}
	return err
}
