package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the record
// tables.
//
// Routes:
//
//	GET    /                 health check
//	GET    /metrics          prometheus metrics gathered from gatherer
//	GET    /rest/v1/{table}  tableHandler.Select
//	POST   /rest/v1/{table}  tableHandler.Insert
//	PATCH  /rest/v1/{table}  tableHandler.Update
//	DELETE /rest/v1/{table}  tableHandler.Delete
//
// Everything under /rest requires apiKey when it is non-empty.
func NewRouter(
	tableHandler *TableHandler,
	apiKey string,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.Metrics)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/rest/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(apiKey))

		r.Get("/{table}", tableHandler.Select)
		r.Post("/{table}", tableHandler.Insert)
		r.Patch("/{table}", tableHandler.Update)
		r.Delete("/{table}", tableHandler.Delete)
	})

	return r
}
