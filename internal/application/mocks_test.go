package application_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

var errBoom = &driven.APIError{Kind: driven.KindServer, StatusCode: 500, Detail: "boom"}

// mockTodoAPI serves todos from memory. Toggle and update calls block on
// release when it is non-nil so tests can observe in-flight state.
type mockTodoAPI struct {
	mu      sync.Mutex
	todos   map[int64]model.Todo
	order   []int64
	listErr error
	failIDs map[int64]error
	release chan struct{}
	calls   int
}

func newMockTodoAPI(todos ...model.Todo) *mockTodoAPI {
	m := &mockTodoAPI{todos: make(map[int64]model.Todo), failIDs: make(map[int64]error)}
	for _, t := range todos {
		m.todos[t.ID] = t
		m.order = append(m.order, t.ID)
	}
	return m
}

func (m *mockTodoAPI) wait(ctx context.Context) error {
	if m.release == nil {
		return nil
	}
	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockTodoAPI) ListTodos(_ context.Context, _ model.TodoFilter) ([]model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.Todo, 0, len(m.order))
	for _, id := range m.order {
		if t, ok := m.todos[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTodoAPI) GetTodo(_ context.Context, id int64) (*model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.todos[id]
	if !ok {
		return nil, &driven.APIError{Kind: driven.KindValidation, StatusCode: 404, Detail: "Todo not found"}
	}
	return &t, nil
}

func (m *mockTodoAPI) CreateTodo(_ context.Context, in model.TodoCreate) (*model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.Title == "" {
		return nil, &driven.APIError{Kind: driven.KindValidation, Detail: "title: failed required"}
	}
	id := int64(len(m.todos) + 100)
	t := model.Todo{ID: id, Title: in.Title, Priority: model.PriorityMedium}
	m.todos[id] = t
	m.order = append([]int64{id}, m.order...)
	return &t, nil
}

func (m *mockTodoAPI) UpdateTodo(ctx context.Context, id int64, in model.TodoUpdate) (*model.Todo, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := m.failIDs[id]; err != nil {
		return nil, err
	}
	t, ok := m.todos[id]
	if !ok {
		return nil, &driven.APIError{Kind: driven.KindValidation, StatusCode: 404, Detail: "Todo not found"}
	}
	t = in.Apply(t)
	m.todos[id] = t
	return &t, nil
}

func (m *mockTodoAPI) DeleteTodo(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failIDs[id]; err != nil {
		return err
	}
	if _, ok := m.todos[id]; !ok {
		return &driven.APIError{Kind: driven.KindValidation, StatusCode: 404, Detail: "Todo not found"}
	}
	delete(m.todos, id)
	return nil
}

func (m *mockTodoAPI) ToggleComplete(ctx context.Context, id int64) (*model.Todo, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := m.failIDs[id]; err != nil {
		return nil, err
	}
	t, ok := m.todos[id]
	if !ok {
		return nil, &driven.APIError{Kind: driven.KindValidation, StatusCode: 404, Detail: "Todo not found"}
	}
	t.IsCompleted = !t.IsCompleted
	if t.IsCompleted {
		ts := model.NewTimestamp(completedAt)
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
	m.todos[id] = t
	return &t, nil
}

func (m *mockTodoAPI) TodoStats(_ context.Context) (*model.TodoStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &model.TodoStats{ByPriority: map[string]int{}}
	for _, t := range m.todos {
		stats.Total++
		if t.IsCompleted {
			stats.Completed++
		}
		stats.ByPriority[string(t.Priority)]++
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}

func (m *mockTodoAPI) setFail(id int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failIDs[id] = err
}

func (m *mockTodoAPI) setListErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// mockAuthAPI is a minimal AuthAPI over a credential store.
type mockAuthAPI struct {
	store    driven.CredentialStore
	password string
}

func (m *mockAuthAPI) Register(_ context.Context, in model.UserCreate) (*model.User, error) {
	return &model.User{ID: 2, Username: in.Username}, nil
}

func (m *mockAuthAPI) Login(ctx context.Context, username, password string) (model.CredentialPair, error) {
	if password != m.password {
		return model.CredentialPair{}, &driven.APIError{Kind: driven.KindValidation, StatusCode: 401, Detail: "Incorrect username or password"}
	}
	pair := model.CredentialPair{Access: "access-" + username, Refresh: "refresh-" + username}
	if err := m.store.Set(ctx, pair); err != nil {
		return model.CredentialPair{}, err
	}
	return pair, nil
}

func (m *mockAuthAPI) Logout(ctx context.Context) error {
	return m.store.Clear(ctx)
}

func (m *mockAuthAPI) Me(ctx context.Context) (*model.User, error) {
	pair, err := m.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !pair.HasAccess() {
		return nil, &driven.APIError{Kind: driven.KindSessionExpired, StatusCode: 401}
	}
	return &model.User{ID: 1, Username: pair.Access[len("access-"):]}, nil
}

func (m *mockAuthAPI) VerifyEmail(_ context.Context, _ string) (string, error) {
	return "", errors.New("not implemented")
}
