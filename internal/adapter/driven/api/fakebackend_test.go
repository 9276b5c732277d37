package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/todopanel/internal/adapter/driven/memory"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

const (
	testUsername = "alice"
	testPassword = "secret123"
)

var testSigningKey = []byte("test-signing-key")

type recordedRequest struct {
	Method    string
	Path      string
	Auth      string
	RequestID string
}

// fakeBackend is an in-process stand-in for the todo backend. Access tokens
// are valid until expireAccess is called; refresh tokens until refreshing is
// told to fail.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	validAccess   map[string]bool
	validRefresh  map[string]bool
	todos         map[int64]model.Todo
	nextID        int64
	requests      []recordedRequest
	seq           int
	refreshStatus int  // Non-zero forces /auth/refresh to answer with this status.
	rejectAll     bool // Every authenticated route answers 401.
	failStats     bool // /todos/stats/summary answers 500.
	refreshDelay  time.Duration

	refreshCalls atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{
		t:            t,
		validAccess:  make(map[string]bool),
		validRefresh: make(map[string]bool),
		todos: map[int64]model.Todo{
			1: {ID: 1, Title: "first", Priority: model.PriorityMedium, OwnerID: 1, CreatedAt: model.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
			2: {ID: 2, Title: "second", Priority: model.PriorityHigh, OwnerID: 1, CreatedAt: model.NewTimestamp(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))},
		},
		nextID: 3,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", fb.handleLogin)
	mux.HandleFunc("POST /auth/register", fb.handleRegister)
	mux.HandleFunc("POST /auth/refresh", fb.handleRefresh)
	mux.HandleFunc("POST /auth/verify-email/{token}", fb.handleVerifyEmail)
	mux.HandleFunc("GET /auth/me", fb.authed(fb.handleMe))
	mux.HandleFunc("GET /todos/", fb.authed(fb.handleListTodos))
	mux.HandleFunc("POST /todos/", fb.authed(fb.handleCreateTodo))
	mux.HandleFunc("GET /todos/stats/summary", fb.authed(fb.handleStats))
	mux.HandleFunc("GET /todos/{id}", fb.authed(fb.handleGetTodo))
	mux.HandleFunc("PUT /todos/{id}", fb.authed(fb.handleUpdateTodo))
	mux.HandleFunc("DELETE /todos/{id}", fb.authed(fb.handleDeleteTodo))
	mux.HandleFunc("PATCH /todos/{id}/complete", fb.authed(fb.handleToggle))
	mux.HandleFunc("GET /admin/users", fb.authed(fb.handleListUsers))
	mux.HandleFunc("PUT /admin/users/{id}/role", fb.authed(fb.handleUpdateRole))
	mux.HandleFunc("GET /admin/stats/overview", fb.authed(fb.handleSystemStats))
	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	fb.srv = httptest.NewServer(fb.record(mux))
	t.Cleanup(fb.srv.Close)
	return fb
}

// issuePair mints and registers a new valid pair.
func (fb *fakeBackend) issuePair() model.CredentialPair {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.issuePairLocked()
}

func (fb *fakeBackend) issuePairLocked() model.CredentialPair {
	fb.seq++
	access := mintToken(fb.t, "access", fb.seq, 30*time.Minute)
	refresh := mintToken(fb.t, "refresh", fb.seq, 7*24*time.Hour)
	fb.validAccess[access] = true
	fb.validRefresh[refresh] = true
	return model.CredentialPair{Access: access, Refresh: refresh}
}

// expireAccess invalidates every access token issued so far.
func (fb *fakeBackend) expireAccess() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.validAccess = make(map[string]bool)
}

func (fb *fakeBackend) set(fn func(fb *fakeBackend)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(fb)
}

// requestsTo returns the recorded requests for method and path, in order.
func (fb *fakeBackend) requestsTo(method, path string) []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	var out []recordedRequest
	for _, r := range fb.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func mintToken(t *testing.T, tokenType string, seq int, ttl time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     testUsername,
		"user_id": 1,
		"role":    "user",
		"type":    tokenType,
		"jti":     strconv.Itoa(seq),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)
	return signed
}

func (fb *fakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.requests = append(fb.requests, recordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		fb.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (fb *fakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		fb.mu.Lock()
		ok := !fb.rejectAll && fb.validAccess[token]
		fb.mu.Unlock()

		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r)
	}
}

func (fb *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad form")
		return
	}
	if r.PostForm.Get("username") != testUsername || r.PostForm.Get("password") != testPassword {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	pair := fb.issuePair()
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh, TokenType: "bearer"})
}

func (fb *fakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad body")
		return
	}
	if in.Username == testUsername {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	writeJSON(w, http.StatusCreated, model.User{ID: 2, Email: in.Email, Username: in.Username, Role: model.RoleUser, IsActive: true})
}

func (fb *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	fb.refreshCalls.Add(1)
	fb.mu.Lock()
	delay := fb.refreshDelay
	fb.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	var in refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad body")
		return
	}

	fb.mu.Lock()
	status := fb.refreshStatus
	valid := fb.validRefresh[in.RefreshToken]
	var pair model.CredentialPair
	if status == 0 && valid {
		pair = fb.issuePairLocked()
	}
	fb.mu.Unlock()

	switch {
	case status != 0:
		writeDetail(w, status, "Invalid refresh token")
	case !valid:
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
	default:
		writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.Access, RefreshToken: pair.Refresh, TokenType: "bearer"})
	}
}

func (fb *fakeBackend) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("token") != "good-token" {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

func (fb *fakeBackend) handleMe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.User{ID: 1, Username: testUsername, Email: "alice@example.com", Role: model.RoleUser, IsActive: true})
}

func (fb *fakeBackend) handleListTodos(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	completed := r.URL.Query().Get("completed")
	out := []model.Todo{}
	for id := int64(1); id < fb.nextID; id++ {
		todo, ok := fb.todos[id]
		if !ok {
			continue
		}
		if completed != "" && strconv.FormatBool(todo.IsCompleted) != completed {
			continue
		}
		out = append(out, todo)
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *fakeBackend) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var in model.TodoCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad body")
		return
	}
	if in.Title == "rejected by server" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{
				{"loc": []any{"body", "title"}, "msg": "title is reserved", "type": "value_error"},
			},
		})
		return
	}

	fb.mu.Lock()
	todo := model.Todo{ID: fb.nextID, Title: in.Title, Description: in.Description, Priority: in.Priority, OwnerID: 1, CreatedAt: model.NewTimestamp(time.Now())}
	if todo.Priority == "" {
		todo.Priority = model.PriorityMedium
	}
	fb.todos[todo.ID] = todo
	fb.nextID++
	fb.mu.Unlock()

	writeJSON(w, http.StatusCreated, todo)
}

func (fb *fakeBackend) handleStats(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	fail := fb.failStats
	fb.mu.Unlock()

	if fail {
		writeDetail(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, model.TodoStats{Total: 2, Completed: 0, Pending: 2, ByPriority: map[string]int{"medium": 1, "high": 1}})
}

func (fb *fakeBackend) lookupTodo(w http.ResponseWriter, r *http.Request) (model.Todo, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "bad id")
		return model.Todo{}, false
	}
	todo, ok := fb.todos[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return model.Todo{}, false
	}
	return todo, true
}

func (fb *fakeBackend) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if todo, ok := fb.lookupTodo(w, r); ok {
		writeJSON(w, http.StatusOK, todo)
	}
}

func (fb *fakeBackend) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var in model.TodoUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad body")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	todo, ok := fb.lookupTodo(w, r)
	if !ok {
		return
	}
	todo = in.Apply(todo)
	now := model.NewTimestamp(time.Now())
	todo.UpdatedAt = &now
	fb.todos[todo.ID] = todo
	writeJSON(w, http.StatusOK, todo)
}

func (fb *fakeBackend) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	todo, ok := fb.lookupTodo(w, r)
	if !ok {
		return
	}
	delete(fb.todos, todo.ID)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted successfully"})
}

func (fb *fakeBackend) handleToggle(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	todo, ok := fb.lookupTodo(w, r)
	if !ok {
		return
	}
	todo.IsCompleted = !todo.IsCompleted
	if todo.IsCompleted {
		now := model.NewTimestamp(time.Now())
		todo.CompletedAt = &now
	} else {
		todo.CompletedAt = nil
	}
	fb.todos[todo.ID] = todo
	writeJSON(w, http.StatusOK, todo)
}

func (fb *fakeBackend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := []model.User{
		{ID: 1, Username: testUsername, Role: model.RoleAdmin, IsActive: true},
		{ID: 2, Username: "bob", Role: model.RoleUser, IsActive: false},
	}
	if role := r.URL.Query().Get("role"); role != "" {
		filtered := []model.User{}
		for _, u := range users {
			if string(u.Role) == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	writeJSON(w, http.StatusOK, users)
}

func (fb *fakeBackend) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var in roleUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad body")
		return
	}
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	writeJSON(w, http.StatusOK, model.User{ID: id, Username: "bob", Role: in.Role, IsActive: true})
}

func (fb *fakeBackend) handleSystemStats(w http.ResponseWriter, _ *http.Request) {
	var stats model.SystemStats
	stats.Users.Total = 2
	stats.Users.Active = 1
	stats.Users.ByRole = map[string]int{"admin": 1, "user": 1}
	stats.Todos.Total = 2
	stats.Todos.Pending = 2
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// newTestClient creates a Client against fb with the given initial pair.
func newTestClient(t *testing.T, fb *fakeBackend, initial model.CredentialPair, opts Options) (*Client, *memory.CredentialStore) {
	t.Helper()

	store := memory.NewCredentialStore(initial)
	client, err := NewClientWithHTTPClient(fb.srv.Client(), fb.srv.URL, store, opts)
	require.NoError(t, err)
	return client, store
}

// expiredPair returns a pair whose access token the backend rejects and whose
// refresh token it still honors.
func expiredPair(fb *fakeBackend) model.CredentialPair {
	pair := fb.issuePair()
	fb.expireAccess()
	return pair
}
