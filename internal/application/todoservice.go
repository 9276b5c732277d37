package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// TodoService orchestrates the current user's todos. Reads go straight to the
// API; updates and toggles are optimistic; create and delete wait for the
// server before touching the cache.
type TodoService struct {
	api     driven.TodoAPI
	cache   *TodoCache
	mutator *Mutator
	logger  *slog.Logger
}

// NewTodoService creates a new TodoService with all required dependencies.
func NewTodoService(api driven.TodoAPI, cache *TodoCache, logger *slog.Logger) *TodoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TodoService{
		api:     api,
		cache:   cache,
		mutator: NewMutator(cache, logger),
		logger:  logger,
	}
}

// Cache returns the service's cache.
func (s *TodoService) Cache() *TodoCache {
	return s.cache
}

// Load fetches todos matching filter and replaces the cache with them.
func (s *TodoService) Load(ctx context.Context, filter model.TodoFilter) ([]model.Todo, error) {
	todos, err := s.api.ListTodos(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("loading todos: %w", err)
	}
	s.cache.Load(todos)
	return s.cache.List(), nil
}

// List returns the cached todos, including unconfirmed predictions.
func (s *TodoService) List() []model.Todo {
	return s.cache.List()
}

// Get fetches one todo from the server and updates its cache entry.
func (s *TodoService) Get(ctx context.Context, id int64) (*model.Todo, error) {
	todo, err := s.api.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := s.cache.Get(id); ok {
		s.cache.Insert(*todo)
	}
	return todo, nil
}

// Create creates a todo and adds the server record to the front of the cache.
func (s *TodoService) Create(ctx context.Context, in model.TodoCreate) (*model.Todo, error) {
	todo, err := s.api.CreateTodo(ctx, in)
	if err != nil {
		return nil, err
	}
	s.cache.Insert(*todo)
	s.logger.Info("todo created", "todo_id", todo.ID)
	return todo, nil
}

// Update shows the predicted result of in immediately and sends it.
func (s *TodoService) Update(ctx context.Context, id int64, in model.TodoUpdate) *Pending {
	current, _ := s.cache.Get(id)
	return s.mutator.Apply(ctx, id, in.Apply(current), func(ctx context.Context) (*model.Todo, error) {
		return s.api.UpdateTodo(ctx, id, in)
	})
}

// ToggleComplete flips the visible completion flag immediately and sends the
// toggle. The server record, with its timestamps, replaces the prediction.
func (s *TodoService) ToggleComplete(ctx context.Context, id int64) *Pending {
	current, _ := s.cache.Get(id)
	return s.mutator.Apply(ctx, id, current.Toggled(), func(ctx context.Context) (*model.Todo, error) {
		return s.api.ToggleComplete(ctx, id)
	})
}

// Delete deletes a todo and then removes it from the cache.
func (s *TodoService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	s.logger.Info("todo deleted", "todo_id", id)
	return nil
}

// Stats returns the server-side summary.
func (s *TodoService) Stats(ctx context.Context) (*model.TodoStats, error) {
	return s.api.TodoStats(ctx)
}
