package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ericfisherdev/todopanel/internal/adapter/driven/api"
	"github.com/ericfisherdev/todopanel/internal/adapter/driven/memory"
	sqliteadapter "github.com/ericfisherdev/todopanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/todopanel/internal/application"
	"github.com/ericfisherdev/todopanel/internal/config"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// app holds the wired adapters and services shared by every command.
type app struct {
	cfg      *config.Config
	client   *api.Client
	store    driven.CredentialStore
	session  *application.SessionService
	todos    *application.TodoService
	registry *prometheus.Registry
	out      io.Writer
	db       *sqliteadapter.DB
	creds    *sqliteadapter.CredentialRepo
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, out: os.Stdout, registry: prometheus.NewRegistry()}

	// Credential store: encrypted SQLite when a key is configured, process
	// memory otherwise.
	if cfg.PersistCredentials() {
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.db = db
		slog.Debug("database opened", "path", cfg.DBPath)

		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Debug("migrations complete", "schema_version", version)
		a.creds = sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
		a.store = a.creds
	} else {
		slog.Warn("TODOPANEL_SECRET_KEY not set, session is kept in memory and lost on exit")
		a.store = memory.NewCredentialStore(model.CredentialPair{})
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := api.Options{
		RequestTimeout: cfg.RequestTimeout,
		RefreshTimeout: cfg.RefreshTimeout,
		HTTPCache:      cfg.HTTPCache,
		Metrics:        api.NewMetrics(a.registry),
		Logger:         slog.Default(),
		OnSessionExpired: func(err error) {
			slog.Warn("session expired, sign in again", "error", err)
		},
	}
	if cfg.BreakerEnabled {
		settings := api.DefaultBreakerSettings()
		opts.Breaker = &settings
	}

	client, err := api.NewClient(cfg.APIURL, a.store, opts)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("creating api client: %w", err)
	}
	a.client = client

	a.session = application.NewSessionService(client, a.store)
	a.todos = application.NewTodoService(client, application.NewTodoCache(), slog.Default())

	return a, nil
}

// Close releases the database, if one was opened.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// storeKind names the credential store for status output.
func (a *app) storeKind() string {
	if a.db != nil {
		return "sqlite (" + a.db.Path() + ")"
	}
	return "memory"
}
