package remote_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/client/remote"
	"github.com/atinyakov/GophLibrary/internal/db"
	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/repository"
	handler "github.com/atinyakov/GophLibrary/internal/server/handler/http"
	"github.com/atinyakov/GophLibrary/internal/service"
)

func newStore(t *testing.T) *remote.RESTStore {
	t.Helper()
	repo := repository.NewMemoryTableRepository(db.TableNames("e2e_")...)
	h := &handler.TableHandler{TableService: service.NewTableService(repo, "e2e_")}
	srv := httptest.NewServer(handler.NewRouter(h, "k", prometheus.NewRegistry(), zap.NewNop()))
	t.Cleanup(srv.Close)

	s, err := remote.NewRESTStore(remote.Options{Endpoint: srv.URL + "/rest/v1", APIKey: "k", Salt: "e2e_"})
	require.NoError(t, err)
	return s
}

func TestRESTStore_AgainstServer(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Ping(ctx))

	m := &models.Media{ID: 4, Name: "Heat", MediaType: models.MediaMovie, Borrowable: true}
	require.NoError(t, s.Insert(ctx, m))
	assert.ErrorIs(t, s.Insert(ctx, m), remote.ErrConflictingEntry)

	m.Renter = "Jane Doe"
	require.NoError(t, s.Update(ctx, m))

	records, err := s.FetchAll(ctx, models.KindMedia)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, m, records[0])

	require.NoError(t, s.Delete(ctx, models.KindMedia, 4))
	assert.ErrorIs(t, s.Delete(ctx, models.KindMedia, 4), remote.ErrMissingEntry)
	assert.ErrorIs(t, s.Update(ctx, m), remote.ErrMissingEntry)
}

func TestRESTStore_WrongKey(t *testing.T) {
	s := newStore(t)
	other, err := remote.NewRESTStore(remote.Options{Endpoint: s.Endpoint(), APIKey: "wrong", Salt: "e2e_"})
	require.NoError(t, err)
	assert.ErrorIs(t, other.Ping(context.Background()), remote.ErrQuery)
}

func TestRESTStore_ConcurrentInsertSameID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Insert(ctx, &models.Employee{ID: 9, Name: "Jane"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if !errors.Is(err, remote.ErrConflictingEntry) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
}
