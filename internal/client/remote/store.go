// Package remote talks to the table server that holds the authoritative
// copy of every record.
//
// Each record kind lives in its own table named {salt}{Kind}. Every
// mutation is preceded by an existence check: inserting an id that exists
// fails with ErrConflictingEntry, updating or deleting one that does not
// fails with ErrMissingEntry. The check and the mutation are two requests,
// so a concurrent writer can slip in between them; the server's primary key
// still rejects the second insert of an id with HTTP 409, which is reported
// as ErrConflictingEntry as well.
package remote

import (
	"context"
	"errors"

	"github.com/atinyakov/GophLibrary/internal/models"
)

var (
	// ErrConnection is returned when the store cannot be reached.
	ErrConnection = errors.New("cannot connect to remote store")
	// ErrQuery is returned when the store rejects a request or answers with
	// something that cannot be decoded.
	ErrQuery = errors.New("remote query failed")
	// ErrConflictingEntry is returned when inserting an id that already exists.
	ErrConflictingEntry = errors.New("entry already exists")
	// ErrMissingEntry is returned when updating or deleting an id that does not exist.
	ErrMissingEntry = errors.New("entry does not exist")
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("remote call timed out")
)

// Store is the remote record store used by the sync engine.
type Store interface {
	// Ping checks that the store is reachable and the credentials are accepted.
	Ping(ctx context.Context) error
	// FetchAll returns every record of kind, decoded and normalized.
	FetchAll(ctx context.Context, kind models.Kind) ([]models.Record, error)
	// Exists reports whether a record of kind with id is stored.
	Exists(ctx context.Context, kind models.Kind, id models.ID) (bool, error)
	// Insert stores a new record.
	Insert(ctx context.Context, r models.Record) error
	// Update replaces a stored record.
	Update(ctx context.Context, r models.Record) error
	// Delete removes the record of kind with id.
	Delete(ctx context.Context, kind models.Kind, id models.ID) error
}
