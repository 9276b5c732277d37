package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AdminAPI = (*Client)(nil)

type roleUpdate struct {
	Role model.Role `json:"role" validate:"required,oneof=user admin"`
}

// ListUsers returns users matching filter.
func (c *Client) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	req := NewRequest(http.MethodGet, "/admin/users")
	q, err := userQuery(filter)
	if err != nil {
		return nil, &driven.APIError{Kind: driven.KindValidation, Method: req.Method, Path: req.Path, Detail: err.Error()}
	}
	req.Query = q

	var users []model.User
	if err := c.do(ctx, req, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// GetUser returns a single user by ID.
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, NewRequest(http.MethodGet, userPath(id)), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserRole sets a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error) {
	path := userPath(id) + "/role"
	body := roleUpdate{Role: role}
	if err := validatePayload(http.MethodPut, path, body); err != nil {
		return nil, err
	}

	req := NewRequest(http.MethodPut, path)
	req.Body = body

	var user model.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ToggleUserActive flips a user's active flag.
func (c *Client) ToggleUserActive(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, NewRequest(http.MethodPatch, userPath(id)+"/activate"), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser deletes a user and their todos.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, NewRequest(http.MethodDelete, userPath(id)), nil)
}

// ListAllTodos returns todos across all users, each with its owner.
func (c *Client) ListAllTodos(ctx context.Context, filter model.AdminTodoFilter) ([]model.TodoWithOwner, error) {
	req := NewRequest(http.MethodGet, "/admin/todos")
	q, err := adminTodoQuery(filter)
	if err != nil {
		return nil, &driven.APIError{Kind: driven.KindValidation, Method: req.Method, Path: req.Path, Detail: err.Error()}
	}
	req.Query = q

	var todos []model.TodoWithOwner
	if err := c.do(ctx, req, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.TodoWithOwner{}
	}
	return todos, nil
}

// SystemStats returns the system-wide overview.
func (c *Client) SystemStats(ctx context.Context) (*model.SystemStats, error) {
	var stats model.SystemStats
	if err := c.do(ctx, NewRequest(http.MethodGet, "/admin/stats/overview"), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func userPath(id int64) string {
	return fmt.Sprintf("/admin/users/%d", id)
}
