package shell_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/client/auth"
	"github.com/atinyakov/GophLibrary/internal/client/commands"
	"github.com/atinyakov/GophLibrary/internal/client/engine"
	"github.com/atinyakov/GophLibrary/internal/client/remote"
	"github.com/atinyakov/GophLibrary/internal/client/shell"
	"github.com/atinyakov/GophLibrary/internal/db"
	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/repository"
	"github.com/atinyakov/GophLibrary/internal/security"
	handler "github.com/atinyakov/GophLibrary/internal/server/handler/http"
	"github.com/atinyakov/GophLibrary/internal/service"
)

func newCommands(t *testing.T) (*commands.Commands, *remote.RESTStore) {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemoryTableRepository(db.TableNames("sh_")...)
	h := &handler.TableHandler{TableService: service.NewTableService(repo, "sh_")}
	srv := httptest.NewServer(handler.NewRouter(h, "", prometheus.NewRegistry(), zap.NewNop()))
	t.Cleanup(srv.Close)

	store, err := remote.NewRESTStore(remote.Options{Endpoint: srv.URL + "/rest/v1", Salt: "sh_"})
	require.NoError(t, err)

	hasher := &security.Argon2Hasher{Params: security.Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 16, SaltLen: 16}}
	admin, err := models.NewEmployee(models.EmployeeSpec{ID: 1, Name: "Ada Admin", PermLevel: models.PermAdmin, Password: "adminpass"}, hasher)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, admin))
	require.NoError(t, store.Insert(ctx, &models.Media{ID: 10, Name: "Dune", MediaType: models.MediaBook, Borrowable: true}))
	require.NoError(t, store.Insert(ctx, &models.Media{ID: 11, Name: "Doom", MediaType: models.MediaVideoGame}))

	eng := engine.New(store, nil)
	require.NoError(t, eng.RefreshAll(ctx))
	return commands.New(eng, auth.NewGate(eng, hasher, nil), hasher, nil), store
}

func run(t *testing.T, cmd *commands.Commands, script string) string {
	t.Helper()
	var out bytes.Buffer
	sh := shell.New(cmd, strings.NewReader(script), &out)
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestShell_BrowseAndSearch(t *testing.T) {
	cmd, _ := newCommands(t)
	out := run(t, cmd, "help\nmedia\nsearch media do\nsearch media zz\nget media 10\nbogus\nexit\n")

	assert.Contains(t, out, "Available commands")
	assert.Contains(t, out, `"name": "Dune"`)
	assert.Contains(t, out, `"name": "Doom"`)
	assert.Contains(t, out, "Error: no records found")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "Bye")
}

func TestShell_LoginAndCheckout(t *testing.T) {
	cmd, store := newCommands(t)
	script := strings.Join([]string{
		"checkout",
		"cart add 10",
		"cart add 11",
		"cart add 10",
		"checkout",
		"login 1",
		"wrong-password",
		"login 1",
		"adminpass",
		"whoami",
		"cart add 10",
		"cart add 11",
		"checkout",
		"cart",
	}, "\n") + "\n"
	out := run(t, cmd, script)

	assert.Contains(t, out, "Cart is empty")
	assert.Contains(t, out, "Cart: 10, 11\n")
	assert.Contains(t, out, "Error: not authenticated")
	assert.Contains(t, out, "Invalid id or password")
	assert.Contains(t, out, "Signed in as 1 (Admin)")
	assert.NotContains(t, out, "argon2")
	assert.Contains(t, out, "Rented 10")
	assert.Contains(t, out, "Could not rent 11")

	records, err := store.FetchAll(context.Background(), models.KindMedia)
	require.NoError(t, err)
	for _, r := range records {
		if r.Identifier() == 10 {
			assert.Equal(t, "Ada Admin", r.(*models.Media).Renter)
		}
	}
}

func TestShell_AddEditDelete(t *testing.T) {
	cmd, store := newCommands(t)
	script := strings.Join([]string{
		"login 1", "adminpass",
		// add media 20
		"add media", "20", "Heat", "Movie", "y", "Warner",
		// edit keeps defaults on empty answers
		"edit media 20", "", "", "", "Regency",
		// add employee 2
		"add employee", "2", "Max Manager", "Lending", "1", "Desk", "Film", "300", "Manager", "managerpass",
		"edit employee 2", "", "Archive", "", "", "", "", "", "",
		"delete media 11",
		"get media 11",
		"add media", "abc",
	}, "\n") + "\n"
	out := run(t, cmd, script)

	assert.Contains(t, out, "Media 20 created")
	assert.Contains(t, out, "Media 20 updated")
	assert.Contains(t, out, "Employee 2 created")
	assert.Contains(t, out, "Employee 2 updated")
	assert.Contains(t, out, "Media 11 deleted")
	assert.Contains(t, out, "Error: Media 11: record not found")
	assert.Contains(t, out, "Error: invalid id")

	ctx := context.Background()
	media, err := store.FetchAll(ctx, models.KindMedia)
	require.NoError(t, err)
	var heat *models.Media
	for _, r := range media {
		if r.Identifier() == 20 {
			heat = r.(*models.Media)
		}
	}
	require.NotNil(t, heat)
	assert.Equal(t, models.MediaMovie, heat.MediaType)
	assert.True(t, heat.Borrowable)
	assert.Equal(t, "Regency", heat.Vendor)

	employees, err := store.FetchAll(ctx, models.KindEmployee)
	require.NoError(t, err)
	var manager *models.Employee
	for _, r := range employees {
		if r.Identifier() == 2 {
			manager = r.(*models.Employee)
		}
	}
	require.NotNil(t, manager)
	assert.Equal(t, "Archive", manager.Department)
	assert.Equal(t, models.PermManager, manager.PermLevel)

	// The edit with an empty password kept the credential.
	ok, err := cmd.Authenticate(2, "managerpass")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShell_EndOfInput(t *testing.T) {
	cmd, _ := newCommands(t)
	out := run(t, cmd, "media")
	assert.Contains(t, out, `"id": 10`)
}
