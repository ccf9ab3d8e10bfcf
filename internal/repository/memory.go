package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/atinyakov/GophLibrary/internal/models"
)

// MemoryTableRepository keeps tables in process memory. The server uses it
// when no database is configured; inserts are atomic per id just like the
// PostgreSQL primary key.
type MemoryTableRepository struct {
	mu     sync.RWMutex
	tables map[string]map[models.ID]json.RawMessage
}

// NewMemoryTableRepository creates empty tables with the given names.
func NewMemoryTableRepository(tables ...string) *MemoryTableRepository {
	r := &MemoryTableRepository{tables: make(map[string]map[models.ID]json.RawMessage, len(tables))}
	for _, t := range tables {
		r.tables[t] = make(map[models.ID]json.RawMessage)
	}
	return r
}

// SelectAll returns every body of table ordered by id.
func (r *MemoryTableRepository) SelectAll(_ context.Context, table string) ([]json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, ok := r.tables[table]
	if !ok {
		return nil, ErrNoTable
	}
	ids := make([]models.ID, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bodies := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		bodies = append(bodies, clone(rows[id]))
	}
	return bodies, nil
}

// SelectByID returns the body stored under id, or ErrNotFound.
func (r *MemoryTableRepository) SelectByID(_ context.Context, table string, id models.ID) (json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, ok := r.tables[table]
	if !ok {
		return nil, ErrNoTable
	}
	body, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(body), nil
}

// Insert stores body under id, or returns ErrConflict.
func (r *MemoryTableRepository) Insert(_ context.Context, table string, id models.ID, body json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.tables[table]
	if !ok {
		return ErrNoTable
	}
	if _, exists := rows[id]; exists {
		return ErrConflict
	}
	rows[id] = clone(body)
	return nil
}

// Update replaces the body stored under id, or returns ErrNotFound.
func (r *MemoryTableRepository) Update(_ context.Context, table string, id models.ID, body json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.tables[table]
	if !ok {
		return ErrNoTable
	}
	if _, exists := rows[id]; !exists {
		return ErrNotFound
	}
	rows[id] = clone(body)
	return nil
}

// Delete removes the row stored under id, or returns ErrNotFound.
func (r *MemoryTableRepository) Delete(_ context.Context, table string, id models.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.tables[table]
	if !ok {
		return ErrNoTable
	}
	if _, exists := rows[id]; !exists {
		return ErrNotFound
	}
	delete(rows, id)
	return nil
}

func clone(b json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
