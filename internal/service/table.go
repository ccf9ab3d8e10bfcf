// Package service provides the table server business logic, delegating
// persistence to a TableRepository.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/GophLibrary/internal/metrics"
	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/repository"
)

var (
	// ErrUnknownTable is returned for tables outside the served set.
	ErrUnknownTable = errors.New("unknown table")
	// ErrBadBody is returned when a request body is not a JSON object with a valid id.
	ErrBadBody = errors.New("body must be a JSON object with a non-zero id")
	// ErrIDMismatch is returned when an update tries to change the record id.
	ErrIDMismatch = errors.New("record id cannot change")
)

// TableRepository defines the persistence operations needed by the TableService.
type TableRepository interface {
	// SelectAll returns every body of table ordered by id.
	SelectAll(ctx context.Context, table string) ([]json.RawMessage, error)
	// SelectByID returns the body stored under id or repository.ErrNotFound.
	SelectByID(ctx context.Context, table string, id models.ID) (json.RawMessage, error)
	// Insert stores a new body or returns repository.ErrConflict.
	Insert(ctx context.Context, table string, id models.ID, body json.RawMessage) error
	// Update replaces an existing body or returns repository.ErrNotFound.
	Update(ctx context.Context, table string, id models.ID, body json.RawMessage) error
	// Delete removes a row or returns repository.ErrNotFound.
	Delete(ctx context.Context, table string, id models.ID) error
}

// TableService serves the salted tables of every registered record kind.
type TableService struct {
	repo   TableRepository
	tables map[string]struct{}
}

// NewTableService constructs a TableService answering for the tables
// {salt}{Kind} of every registered kind.
func NewTableService(repo TableRepository, salt string) *TableService {
	tables := make(map[string]struct{})
	for _, k := range models.Kinds() {
		tables[salt+k.TableName()] = struct{}{}
	}
	return &TableService{repo: repo, tables: tables}
}

// Tables returns the names of the served tables.
func (s *TableService) Tables() []string {
	out := make([]string, 0, len(s.tables))
	for t := range s.tables {
		out = append(out, t)
	}
	return out
}

// List returns every row of table.
func (s *TableService) List(ctx context.Context, table string) ([]json.RawMessage, error) {
	if err := s.check(table); err != nil {
		return nil, err
	}
	rows, err := s.repo.SelectAll(ctx, table)
	observe(table, "select", err)
	return rows, err
}

// Get returns the row stored under id.
func (s *TableService) Get(ctx context.Context, table string, id models.ID) (json.RawMessage, error) {
	if err := s.check(table); err != nil {
		return nil, err
	}
	row, err := s.repo.SelectByID(ctx, table, id)
	observe(table, "select", err)
	return row, err
}

// Create stores body as a new row keyed by its "id" field and returns that id.
func (s *TableService) Create(ctx context.Context, table string, body json.RawMessage) (models.ID, error) {
	if err := s.check(table); err != nil {
		return 0, err
	}
	fields, id, err := decodeRow(body)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ErrBadBody
	}
	normalized, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("encode row: %w", err)
	}
	err = s.repo.Insert(ctx, table, id, normalized)
	observe(table, "insert", err)
	return id, err
}

// Update merges the top-level fields of patch into the row stored under
// id. The id field itself may be repeated but not changed.
func (s *TableService) Update(ctx context.Context, table string, id models.ID, patch json.RawMessage) (json.RawMessage, error) {
	if err := s.check(table); err != nil {
		return nil, err
	}
	changes, patchID, err := decodeRow(patch)
	if err != nil {
		return nil, err
	}
	if patchID != 0 && patchID != id {
		return nil, ErrIDMismatch
	}

	current, err := s.repo.SelectByID(ctx, table, id)
	if err != nil {
		observe(table, "update", err)
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &fields); err != nil {
		return nil, fmt.Errorf("decode stored row: %w", err)
	}
	for k, v := range changes {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}

	err = s.repo.Update(ctx, table, id, merged)
	observe(table, "update", err)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the row stored under id.
func (s *TableService) Delete(ctx context.Context, table string, id models.ID) error {
	if err := s.check(table); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, table, id)
	observe(table, "delete", err)
	return err
}

func (s *TableService) check(table string) error {
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return nil
}

// decodeRow splits a JSON object into its fields and its id. A missing id
// yields 0.
func decodeRow(body json.RawMessage) (map[string]json.RawMessage, models.ID, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, 0, ErrBadBody
	}
	raw, ok := fields["id"]
	if !ok {
		return fields, 0, nil
	}
	var id models.ID
	if err := json.Unmarshal(raw, &id); err != nil || id == 0 {
		return nil, 0, ErrBadBody
	}
	return fields, id, nil
}

func observe(table, op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrConflict):
		result = "conflict"
	case errors.Is(err, repository.ErrNotFound):
		result = "missing"
	default:
		result = "error"
	}
	metrics.TableOps.WithLabelValues(table, op, result).Inc()
}
