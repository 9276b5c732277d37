package driven

import (
	"context"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// TodoAPI defines the driven port for the current user's todos.
type TodoAPI interface {
	ListTodos(ctx context.Context, filter model.TodoFilter) ([]model.Todo, error)
	GetTodo(ctx context.Context, id int64) (*model.Todo, error)
	CreateTodo(ctx context.Context, in model.TodoCreate) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id int64, in model.TodoUpdate) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	// ToggleComplete flips the completion flag server-side and returns the
	// canonical record, including server-computed timestamps.
	ToggleComplete(ctx context.Context, id int64) (*model.Todo, error)
	TodoStats(ctx context.Context) (*model.TodoStats, error)
}
