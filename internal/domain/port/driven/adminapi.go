package driven

import (
	"context"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// AdminAPI defines the driven port for the administrative endpoints.
// Every method requires an admin session; non-admins get ErrValidation (403).
type AdminAPI interface {
	ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error)
	ToggleUserActive(ctx context.Context, id int64) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListAllTodos(ctx context.Context, filter model.AdminTodoFilter) ([]model.TodoWithOwner, error)
	SystemStats(ctx context.Context) (*model.SystemStats, error)
}
