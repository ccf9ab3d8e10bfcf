package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophLibrary/internal/client/engine"
	"github.com/atinyakov/GophLibrary/internal/client/remote"
	"github.com/atinyakov/GophLibrary/internal/models"
)

// fakeStore is an in-memory remote.Store. Insert follows the
// check-then-act protocol; the final write is conditional like a primary key.
type fakeStore struct {
	mu      sync.Mutex
	tables  map[models.Kind]map[models.ID]models.Record
	fail    error
	fetches atomic.Int32

	// afterCheck, when set, runs between the existence check and the write.
	afterCheck func()
}

func newFakeStore(records ...models.Record) *fakeStore {
	s := &fakeStore{tables: map[models.Kind]map[models.ID]models.Record{
		models.KindEmployee: {},
		models.KindMedia:    {},
	}}
	for _, r := range records {
		s.tables[models.KindOf(r)][r.Identifier()] = r.Clone()
	}
	return s
}

func (s *fakeStore) Ping(context.Context) error { return s.fail }

func (s *fakeStore) FetchAll(_ context.Context, kind models.Kind) ([]models.Record, error) {
	s.fetches.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]models.Record, 0, len(s.tables[kind]))
	for _, r := range s.tables[kind] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *fakeStore) Exists(_ context.Context, kind models.Kind, id models.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	_, ok := s.tables[kind][id]
	return ok, nil
}

func (s *fakeStore) Insert(ctx context.Context, r models.Record) error {
	exists, err := s.Exists(ctx, models.KindOf(r), r.Identifier())
	if err != nil {
		return err
	}
	if exists {
		return remote.ErrConflictingEntry
	}
	if s.afterCheck != nil {
		s.afterCheck()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[models.KindOf(r)][r.Identifier()]; ok {
		return remote.ErrConflictingEntry
	}
	s.tables[models.KindOf(r)][r.Identifier()] = r.Clone()
	return nil
}

func (s *fakeStore) Update(ctx context.Context, r models.Record) error {
	exists, err := s.Exists(ctx, models.KindOf(r), r.Identifier())
	if err != nil {
		return err
	}
	if !exists {
		return remote.ErrMissingEntry
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[models.KindOf(r)][r.Identifier()] = r.Clone()
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, kind models.Kind, id models.ID) error {
	exists, err := s.Exists(ctx, kind, id)
	if err != nil {
		return err
	}
	if !exists {
		return remote.ErrMissingEntry
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[kind], id)
	return nil
}

func (s *fakeStore) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func seed() []models.Record {
	return []models.Record{
		&models.Employee{ID: 1, Name: "Jane Doe", PermLevel: models.PermAdmin},
		&models.Employee{ID: 2, Name: "John Smith", PermLevel: models.PermBasic},
		&models.Media{ID: 10, Name: "Dune", MediaType: models.MediaBook, Borrowable: true},
		&models.Media{ID: 11, Name: "Dune", MediaType: models.MediaMovie, Borrowable: true},
		&models.Media{ID: 12, Name: "Doom", MediaType: models.MediaVideoGame},
		&models.Media{ID: 13, Name: "Heat", MediaType: models.MediaMovie, Borrowable: true},
	}
}

func refreshed(t *testing.T, records ...models.Record) (*engine.Engine, *fakeStore) {
	t.Helper()
	store := newFakeStore(records...)
	e := engine.New(store, nil)
	require.NoError(t, e.RefreshAll(context.Background()))
	return e, store
}

func TestRefreshAll_RoundTrip(t *testing.T) {
	records := seed()
	e, _ := refreshed(t, records...)

	for _, r := range records {
		got, ok := e.Get(models.KindOf(r), r.Identifier())
		require.True(t, ok, "id %d", r.Identifier())
		assert.Equal(t, r, got)

		hits, ok := e.PrefixSearch(models.KindOf(r), strings.ToLower(r.DisplayName()))
		require.True(t, ok, "name %q not indexed", r.DisplayName())
		assert.NotEmpty(t, hits)
	}
	assert.Len(t, e.List(models.KindMedia), 4)
	assert.Len(t, e.List(models.KindEmployee), 2)
	assert.False(t, e.RefreshedAt(models.KindMedia).IsZero())
}

func TestRefresh_FailureKeepsPreviousContents(t *testing.T) {
	e, store := refreshed(t, seed()...)
	store.setFail(remote.ErrConnection)

	err := e.RefreshAll(context.Background())
	assert.ErrorIs(t, err, remote.ErrConnection)
	assert.Len(t, e.List(models.KindMedia), 4)
}

func TestRefresh_ReplacesWholeTable(t *testing.T) {
	e, store := refreshed(t, seed()...)

	store.mu.Lock()
	delete(store.tables[models.KindMedia], 13)
	store.mu.Unlock()

	require.NoError(t, e.Refresh(context.Background(), models.KindMedia))
	_, ok := e.Get(models.KindMedia, 13)
	assert.False(t, ok)
	_, ok = e.PrefixSearch(models.KindMedia, "he")
	assert.False(t, ok)
}

func TestGet_ReturnsCopy(t *testing.T) {
	e, _ := refreshed(t, seed()...)
	r, ok := e.Get(models.KindMedia, 13)
	require.True(t, ok)
	r.(*models.Media).Renter = "someone"

	again, _ := e.Get(models.KindMedia, 13)
	assert.Empty(t, again.(*models.Media).Renter)
}

func TestPrefixSearch(t *testing.T) {
	e, _ := refreshed(t, seed()...)

	hits, ok := e.PrefixSearch(models.KindMedia, "D")
	require.True(t, ok)
	require.Len(t, hits, 2)
	// Records sharing a name collapse to the lowest id.
	assert.Equal(t, models.ID(10), hits[0].Identifier())
	assert.Equal(t, models.ID(12), hits[1].Identifier())

	hits, ok = e.PrefixSearch(models.KindEmployee, "jo")
	require.True(t, ok)
	require.Len(t, hits, 1)
	assert.Equal(t, "John Smith", hits[0].DisplayName())

	_, ok = e.PrefixSearch(models.KindMedia, "zz")
	assert.False(t, ok)

	all, ok := e.PrefixSearch(models.KindMedia, "")
	require.True(t, ok)
	assert.Len(t, all, 3)
}

func TestPrefixSearch_EmptyCache(t *testing.T) {
	e := engine.New(newFakeStore(), nil)
	_, ok := e.PrefixSearch(models.KindMedia, "")
	assert.False(t, ok)
}

func TestApplyMutation_Insert(t *testing.T) {
	e, _ := refreshed(t, seed()...)
	r := &models.Media{ID: 20, Name: "Blade Runner", MediaType: models.MediaMovie}

	require.NoError(t, e.ApplyMutation(context.Background(), engine.OpInsert, r))
	got, ok := e.Get(models.KindMedia, 20)
	require.True(t, ok)
	assert.Equal(t, r, got)

	// The index is only rebuilt on refresh.
	_, ok = e.PrefixSearch(models.KindMedia, "blade")
	assert.False(t, ok)
	require.NoError(t, e.Refresh(context.Background(), models.KindMedia))
	_, ok = e.PrefixSearch(models.KindMedia, "blade")
	assert.True(t, ok)
}

func TestApplyMutation_RemoteFailureLeavesCache(t *testing.T) {
	e, store := refreshed(t, seed()...)
	ctx := context.Background()

	err := e.ApplyMutation(ctx, engine.OpInsert, &models.Media{ID: 13, Name: "Other"})
	assert.ErrorIs(t, err, remote.ErrConflictingEntry)
	got, _ := e.Get(models.KindMedia, 13)
	assert.Equal(t, "Heat", got.DisplayName())

	err = e.ApplyMutation(ctx, engine.OpUpdate, &models.Media{ID: 99, Name: "Ghost"})
	assert.ErrorIs(t, err, remote.ErrMissingEntry)
	_, ok := e.Get(models.KindMedia, 99)
	assert.False(t, ok)

	store.setFail(remote.ErrTimeout)
	err = e.ApplyMutation(ctx, engine.OpInsert, &models.Media{ID: 30, Name: "New"})
	assert.ErrorIs(t, err, remote.ErrTimeout)
	_, ok = e.Get(models.KindMedia, 30)
	assert.False(t, ok)

	err = e.ApplyMutation(ctx, engine.OpDelete, &models.Media{ID: 13})
	assert.ErrorIs(t, err, remote.ErrTimeout)
	_, ok = e.Get(models.KindMedia, 13)
	assert.True(t, ok)
}

func TestApplyMutation_UpdateAndDelete(t *testing.T) {
	e, store := refreshed(t, seed()...)
	ctx := context.Background()

	require.NoError(t, e.ApplyMutation(ctx, engine.OpUpdate, &models.Employee{ID: 2, Name: "John Smyth"}))
	got, _ := e.Get(models.KindEmployee, 2)
	assert.Equal(t, "John Smyth", got.DisplayName())

	require.NoError(t, e.ApplyMutation(ctx, engine.OpDelete, &models.Employee{ID: 2}))
	_, ok := e.Get(models.KindEmployee, 2)
	assert.False(t, ok)
	_, ok = store.tables[models.KindEmployee][2]
	assert.False(t, ok)
}

func TestApplyMutation_ConcurrentInsertSameID(t *testing.T) {
	e, store := refreshed(t)

	// Hold both inserts after their existence check until both passed it.
	var checked sync.WaitGroup
	checked.Add(2)
	store.afterCheck = func() {
		checked.Done()
		checked.Wait()
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			errs <- e.ApplyMutation(context.Background(), engine.OpInsert,
				&models.Employee{ID: 5, Name: fmt.Sprintf("writer %d", i)})
		}(i)
	}

	var ok, conflicts int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, remote.ErrConflictingEntry):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	cached, found := e.Get(models.KindEmployee, 5)
	require.True(t, found)
	assert.Equal(t, store.tables[models.KindEmployee][5], cached)
}

func TestRent(t *testing.T) {
	e, store := refreshed(t, seed()...)
	ctx := context.Background()

	m, err := e.Rent(ctx, 13, 1)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", m.Renter)

	cached, _ := e.Get(models.KindMedia, 13)
	assert.Equal(t, "Jane Doe", cached.(*models.Media).Renter)
	assert.Equal(t, "Jane Doe", store.tables[models.KindMedia][13].(*models.Media).Renter)

	_, err = e.Rent(ctx, 12, 1)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.Rent(ctx, 99, 1)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	_, err = e.Rent(ctx, 13, 99)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	store.setFail(remote.ErrConnection)
	_, err = e.Rent(ctx, 10, 2)
	assert.ErrorIs(t, err, remote.ErrConnection)
	cached, _ = e.Get(models.KindMedia, 10)
	assert.Empty(t, cached.(*models.Media).Renter)
}

func TestStartAutoRefresh(t *testing.T) {
	store := newFakeStore(seed()...)
	e := engine.New(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.StartAutoRefresh(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := e.Get(models.KindMedia, 13)
		return ok && store.fetches.Load() >= 4
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	n := store.fetches.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, store.fetches.Load())
}

func TestUnknownKind(t *testing.T) {
	e := engine.New(newFakeStore(), nil)
	assert.ErrorIs(t, e.Refresh(context.Background(), models.Kind("Book")), engine.ErrUnknownKind)
	_, ok := e.Get(models.Kind("Book"), 1)
	assert.False(t, ok)
}
