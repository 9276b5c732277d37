package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/todopanel/internal/application"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAPIError maps a backend error onto a panel response. Session expiry is
// 401 so the caller can route to login; backend outages are gateway errors.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *driven.APIError
	if !errors.As(err, &apiErr) {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusBadGateway
	switch apiErr.Kind {
	case driven.KindSessionExpired:
		status = http.StatusUnauthorized
	case driven.KindValidation:
		status = http.StatusBadRequest
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
	case driven.KindNetwork:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{Error: driven.UserMessage(err), Kind: apiErr.Kind.String()})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// TodoResponse is the JSON representation of a todo.
type TodoResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	IsCompleted bool    `json:"is_completed"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
	CompletedAt *string `json:"completed_at"`
}

// CreateTodoRequest is the JSON body for the create endpoint.
type CreateTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status        string        `json:"status"`
	Time          string        `json:"time"`
	Authenticated bool          `json:"authenticated"`
	RefreshState  string        `json:"refresh_state,omitempty"`
	CachedTodos   int           `json:"cached_todos"`
	Sync          *SyncResponse `json:"sync,omitempty"`
}

// SyncResponse is the JSON representation of the background sync schedule.
type SyncResponse struct {
	Tier       string `json:"tier"`
	LastSynced string `json:"last_synced,omitempty"`
	NextSyncAt string `json:"next_sync_at,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// toTodoResponse converts a domain Todo to its JSON response representation.
func toTodoResponse(t model.Todo) TodoResponse {
	resp := TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Priority:    string(t.Priority),
		IsCompleted: t.IsCompleted,
		CreatedAt:   formatTime(t.CreatedAt.Time),
	}
	if t.Description != nil {
		resp.Description = *t.Description
	}
	if t.UpdatedAt != nil {
		s := formatTime(t.UpdatedAt.Time)
		resp.UpdatedAt = &s
	}
	if t.CompletedAt != nil {
		s := formatTime(t.CompletedAt.Time)
		resp.CompletedAt = &s
	}
	return resp
}

func toTodoResponses(todos []model.Todo) []TodoResponse {
	resp := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		resp = append(resp, toTodoResponse(t))
	}
	return resp
}

// toSyncResponse converts the sync schedule to its JSON representation.
func toSyncResponse(info application.SyncInfo) *SyncResponse {
	return &SyncResponse{
		Tier:       info.Tier.String(),
		LastSynced: formatTime(info.LastSynced),
		NextSyncAt: formatTime(info.NextSyncAt),
		LastError:  info.LastError,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
