// Package httphandler serves the local JSON panel over the todo services.
package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/todopanel/internal/application"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the panel API.
type Handler struct {
	todos        *application.TodoService
	session      *application.SessionService
	syncSvc      *application.SyncService
	refreshState func() string
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. syncSvc and
// refreshState may be nil.
func NewHandler(
	todos *application.TodoService,
	session *application.SessionService,
	syncSvc *application.SyncService,
	refreshState func() string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		todos:        todos,
		session:      session,
		syncSvc:      syncSvc,
		refreshState: refreshState,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging, metrics, and recovery middleware. When reg is non-nil its
// collectors are served on /metrics.
func NewServeMux(h *Handler, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/todos", h.ListTodos)
	mux.HandleFunc("POST /api/v1/todos", h.CreateTodo)
	mux.HandleFunc("POST /api/v1/todos/{id}/toggle", h.ToggleTodo)
	mux.HandleFunc("DELETE /api/v1/todos/{id}", h.DeleteTodo)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/sync", h.Sync)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)

	if reg != nil {
		requests := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todopanel",
			Subsystem: "panel",
			Name:      "http_requests_total",
			Help:      "Panel HTTP requests by route and status.",
		}, []string{"route", "status"})
		reg.MustRegister(requests)
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		wrapped = metricsMiddleware(requests, wrapped)
	}

	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports panel liveness plus session and sync state. It never calls
// the backend.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Time:        time.Now().UTC().Format(time.RFC3339),
		CachedTodos: h.todos.Cache().Len(),
	}

	authenticated, err := h.session.IsAuthenticated(r.Context())
	if err != nil {
		h.logger.Error("failed to read credentials", "error", err)
		resp.Status = "degraded"
	}
	resp.Authenticated = authenticated

	if h.refreshState != nil {
		resp.RefreshState = h.refreshState()
	}
	if h.syncSvc != nil {
		resp.Sync = toSyncResponse(h.syncSvc.Info())
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTodos returns the cached todos, including unconfirmed predictions.
// ?refresh=true reloads from the backend first.
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if _, err := h.todos.Load(r.Context(), model.TodoFilter{}); err != nil {
			h.logger.Warn("failed to reload todos", "error", err)
			writeAPIError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toTodoResponses(h.todos.List()))
}

// CreateTodo creates a todo on the backend and returns it.
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := h.todos.Create(r.Context(), model.TodoCreate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTodoResponse(*todo))
}

// ToggleTodo flips a todo's completion flag. By default it answers 202 with
// the predicted todo and lets the backend call finish in the background;
// ?wait=true blocks for the server record instead.
func (h *Handler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if _, cached := h.todos.Cache().Get(id); !cached {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	// The mutation outlives this request unless the caller waits for it.
	ctx := r.Context()
	if !wait {
		ctx = context.WithoutCancel(ctx)
	}
	pending := h.todos.ToggleComplete(ctx, id)

	if !wait {
		predicted, _ := h.todos.Cache().Get(id)
		go func() {
			if _, err := pending.Wait(); err != nil {
				h.logger.Warn("toggle rolled back", "todo_id", id, "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, toTodoResponse(predicted))
		return
	}

	todo, err := pending.Wait()
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponse(*todo))
}

// DeleteTodo deletes a todo on the backend and drops it from the cache.
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the backend's summary for the current user.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.todos.Stats(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Sync triggers an immediate background sync and waits for it.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.syncSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not running")
		return
	}

	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSyncResponse(h.syncSvc.Info()))
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return 0, false
	}
	return id, true
}
