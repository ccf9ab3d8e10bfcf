// Package engine keeps the client's in-memory copy of the remote tables.
//
// Every record kind has a partition: an id-keyed map of records and a
// prefix index over their lower-cased names, guarded by one reader-writer
// lock. A refresh fetches a whole table with no lock held, builds a new map
// and index, and swaps both in under a single write lock. Mutations go to
// the remote store first and touch the map only after the store accepted
// them; the index is left alone until the next refresh, so a new or renamed
// record is not found by prefix search before then.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/client/remote"
	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/trie"
)

var (
	// ErrNotFound is returned when a record is not in the cache.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownKind is returned for kinds missing from the registry.
	ErrUnknownKind = errors.New("unknown record kind")
)

// Op is a mutation applied through ApplyMutation.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

type partition struct {
	mu        sync.RWMutex
	records   map[models.ID]models.Record
	index     *trie.Trie
	refreshed time.Time
}

// Engine owns the cached partitions and funnels every change to them.
type Engine struct {
	store remote.Store
	log   *zap.Logger
	parts map[models.Kind]*partition
}

// New returns an Engine with an empty partition per registered kind.
func New(store remote.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	parts := make(map[models.Kind]*partition)
	for _, k := range models.Kinds() {
		parts[k] = &partition{records: map[models.ID]models.Record{}, index: trie.New()}
	}
	return &Engine{store: store, log: log, parts: parts}
}

func (e *Engine) partition(kind models.Kind) (*partition, error) {
	p, ok := e.parts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return p, nil
}

// RefreshAll refreshes every kind in registry order and stops at the first
// failure. Kinds are swapped in one at a time.
func (e *Engine) RefreshAll(ctx context.Context) error {
	for _, k := range models.Kinds() {
		if err := e.Refresh(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Refresh replaces the partition of kind with the current remote table.
// On failure the partition keeps its previous contents.
func (e *Engine) Refresh(ctx context.Context, kind models.Kind) error {
	p, err := e.partition(kind)
	if err != nil {
		return err
	}

	fetched, err := e.store.FetchAll(ctx, kind)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", kind, err)
	}

	records := make(map[models.ID]models.Record, len(fetched))
	index := trie.New()
	for _, r := range fetched {
		records[r.Identifier()] = r
		index.Insert(strings.ToLower(r.DisplayName()))
	}

	p.mu.Lock()
	p.records = records
	p.index = index
	p.refreshed = time.Now()
	p.mu.Unlock()

	e.log.Info("cache refreshed",
		zap.String("kind", string(kind)),
		zap.Int("records", len(records)),
		zap.Int("names", index.Len()))
	return nil
}

// RefreshedAt returns when kind was last refreshed; zero before the first refresh.
func (e *Engine) RefreshedAt(kind models.Kind) time.Time {
	p, err := e.partition(kind)
	if err != nil {
		return time.Time{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.refreshed
}

// Get returns a copy of the cached record of kind with id.
func (e *Engine) Get(kind models.Kind, id models.ID) (models.Record, bool) {
	p, err := e.partition(kind)
	if err != nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.records[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// List returns copies of every cached record of kind ordered by id.
func (e *Engine) List(kind models.Kind) []models.Record {
	p, err := e.partition(kind)
	if err != nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedClones(p.records, nil)
}

// PrefixSearch returns the cached records of kind whose lower-cased name
// starts with the lower-cased query. Records are joined to the index by
// name, so records sharing a name collapse into the one with the lowest id.
// The boolean is false when nothing matches.
func (e *Engine) PrefixSearch(kind models.Kind, query string) ([]models.Record, bool) {
	p, err := e.partition(kind)
	if err != nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	names, ok := p.index.StartsWith(strings.ToLower(query))
	if !ok {
		return nil, false
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	out := sortedClones(p.records, func(r models.Record) bool {
		name := strings.ToLower(r.DisplayName())
		if !wanted[name] {
			return false
		}
		delete(wanted, name)
		return true
	})
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// ApplyMutation sends r to the remote store and, once it was accepted,
// mirrors the change into the cache. A failed remote call leaves the cache
// untouched. The prefix index is not updated.
func (e *Engine) ApplyMutation(ctx context.Context, op Op, r models.Record) error {
	kind := models.KindOf(r)
	p, err := e.partition(kind)
	if err != nil {
		return err
	}

	switch op {
	case OpInsert:
		err = e.store.Insert(ctx, r)
	case OpUpdate:
		err = e.store.Update(ctx, r)
	case OpDelete:
		err = e.store.Delete(ctx, kind, r.Identifier())
	default:
		return fmt.Errorf("unsupported mutation %s", op)
	}
	if err != nil {
		e.log.Warn("remote mutation failed",
			zap.Stringer("op", op),
			zap.String("kind", string(kind)),
			zap.Uint16("id", uint16(r.Identifier())),
			zap.Error(err))
		return fmt.Errorf("%s %s %d: %w", op, kind, r.Identifier(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if op == OpDelete {
		delete(p.records, r.Identifier())
	} else {
		p.records[r.Identifier()] = r.Clone()
	}
	return nil
}

// Rent lends the media with mediaID to the employee with employeeID by
// recording the employee's name as renter. It returns the updated media.
func (e *Engine) Rent(ctx context.Context, mediaID, employeeID models.ID) (*models.Media, error) {
	emp, ok := e.Get(models.KindEmployee, employeeID)
	if !ok {
		return nil, fmt.Errorf("employee %d: %w", employeeID, ErrNotFound)
	}
	rec, ok := e.Get(models.KindMedia, mediaID)
	if !ok {
		return nil, fmt.Errorf("media %d: %w", mediaID, ErrNotFound)
	}

	media := rec.(*models.Media)
	if !media.Borrowable {
		return nil, &models.ValidationError{Field: "borrowable", Reason: fmt.Sprintf("media %d cannot be borrowed", mediaID)}
	}
	media.Renter = emp.DisplayName()

	if err := e.ApplyMutation(ctx, OpUpdate, media); err != nil {
		return nil, err
	}
	return media, nil
}

// StartAutoRefresh refreshes every kind each interval until ctx is done.
// Failures are logged and retried on the next tick.
func (e *Engine) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.RefreshAll(ctx); err != nil && ctx.Err() == nil {
					e.log.Error("auto refresh failed", zap.Error(err))
				}
			}
		}
	}()
}

// sortedClones returns copies of the records accepted by keep, ordered by
// id. A nil keep accepts every record.
func sortedClones(records map[models.ID]models.Record, keep func(models.Record) bool) []models.Record {
	ids := make([]models.ID, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		r := records[id]
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}
