// Package main starts the GophLibrary table server: a PostgREST-shaped REST
// API over the per-kind record tables, backed by PostgreSQL or, when no DSN
// is configured, by process memory.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/config"
	"github.com/atinyakov/GophLibrary/internal/db"
	"github.com/atinyakov/GophLibrary/internal/logger"
	"github.com/atinyakov/GophLibrary/internal/metrics"
	"github.com/atinyakov/GophLibrary/internal/repository"
	"github.com/atinyakov/GophLibrary/internal/server/handler/http"
	"github.com/atinyakov/GophLibrary/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmpOr(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmpOr(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(cmpOr(options.LogLevel, "info")); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo := openRepository(ctx, options, zapLogger)
	defer closeRepo()

	tableService := service.NewTableService(repo, options.Salt)
	tableHandler := &http.TableHandler{TableService: tableService}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		zapLogger.Fatal("failed to register metrics", zap.Error(err))
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(tableHandler, options.APIKey, reg, zapLogger)
	if options.APIKey == "" {
		zapLogger.Warn("no api key configured, tables are open to every client")
	}

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	var err error
	if options.TLSCert != "" && options.TLSKey != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		zapLogger.Info("starting HTTPS server",
			zap.String("addr", options.Port), zap.Strings("tables", tableService.Tables()))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server",
			zap.String("addr", options.Port), zap.Strings("tables", tableService.Tables()))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
}

// openRepository connects to PostgreSQL and creates the tables, or falls
// back to memory when no DSN is set.
func openRepository(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (service.TableRepository, func()) {
	if options.DatabaseDSN == "" {
		zapLogger.Warn("no database configured, keeping tables in memory")
		return repository.NewMemoryTableRepository(db.TableNames(options.Salt)...), func() {}
	}

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	if err := db.EnsureTables(ctx, postgresDB, options.Salt); err != nil {
		zapLogger.Fatal("cannot create tables", zap.Error(err))
	}
	return repository.NewPostgresTableRepository(postgresDB), func() { _ = postgresDB.Close() }
}
