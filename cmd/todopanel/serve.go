package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	httphandler "github.com/ericfisherdev/todopanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/todopanel/internal/application"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	username := fs.String("u", os.Getenv("TODOPANEL_USERNAME"), "sign in as this user before serving (default: $TODOPANEL_USERNAME)")
	password := fs.String("p", "", "password for -u (default: $TODOPANEL_PASSWORD, then prompt)")
	noSync := fs.Bool("no-sync", false, "disable background sync")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// 1. Sign in when asked; otherwise reuse the stored session.
	if *username != "" {
		pw, err := resolvePassword(*password)
		if err != nil {
			return err
		}
		user, err := a.session.Login(ctx, *username, pw)
		if err != nil {
			return err
		}
		slog.Info("logged in", "username", user.Username)
	} else if ok, err := a.session.IsAuthenticated(ctx); err != nil {
		return err
	} else if !ok {
		slog.Warn("no stored session, backend calls will fail until `todopanel login` is run")
	}

	// 2. Create and start the sync service.
	var syncSvc *application.SyncService
	if !*noSync {
		syncSvc = application.NewSyncService(a.todos, model.TodoFilter{}, slog.Default())
		go syncSvc.Start(ctx)
	}

	// 3. Create HTTP handler and register routes.
	refreshState := func() string { return a.client.Refresher().State().String() }
	h := httphandler.NewHandler(a.todos, a.session, syncSvc, refreshState, slog.Default())
	handler := httphandler.NewServeMux(h, slog.Default(), a.registry)

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", a.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("todopanel started",
		"listen_addr", a.cfg.ListenAddr,
		"api_url", a.cfg.APIURL,
		"sync", syncSvc != nil,
	)

	// 4. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	slog.Info("shutting down")

	// 5. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
