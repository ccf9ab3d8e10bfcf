package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophLibrary/internal/models"
)

func TestMemoryTableRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTableRepository("t_Media")

	require.NoError(t, repo.Insert(ctx, "t_Media", 2, json.RawMessage(`{"id":2}`)))
	require.NoError(t, repo.Insert(ctx, "t_Media", 1, json.RawMessage(`{"id":1}`)))
	assert.ErrorIs(t, repo.Insert(ctx, "t_Media", 1, json.RawMessage(`{"id":1}`)), ErrConflict)

	all, err := repo.SelectAll(ctx, "t_Media")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.JSONEq(t, `{"id":1}`, string(all[0]))

	require.NoError(t, repo.Update(ctx, "t_Media", 1, json.RawMessage(`{"id":1,"name":"x"}`)))
	got, err := repo.SelectByID(ctx, "t_Media", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"x"}`, string(got))
	assert.ErrorIs(t, repo.Update(ctx, "t_Media", 9, json.RawMessage(`{}`)), ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "t_Media", 1))
	assert.ErrorIs(t, repo.Delete(ctx, "t_Media", 1), ErrNotFound)
	_, err = repo.SelectByID(ctx, "t_Media", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.SelectAll(ctx, "t_Other")
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestMemoryTableRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTableRepository("t")
	body := json.RawMessage(`{"id":1}`)
	require.NoError(t, repo.Insert(ctx, "t", 1, body))
	body[2] = 'X'

	got, err := repo.SelectByID(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(got))
}

func TestMemoryTableRepository_ConcurrentInsertSameID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTableRepository("t")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Insert(ctx, "t", models.ID(42), json.RawMessage(`{"id":42}`))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}
