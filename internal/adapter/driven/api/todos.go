package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TodoAPI = (*Client)(nil)

// ListTodos returns the current user's todos matching filter.
func (c *Client) ListTodos(ctx context.Context, filter model.TodoFilter) ([]model.Todo, error) {
	req := NewRequest(http.MethodGet, "/todos/")
	q, err := todoQuery(filter)
	if err != nil {
		return nil, &driven.APIError{Kind: driven.KindValidation, Method: req.Method, Path: req.Path, Detail: err.Error()}
	}
	req.Query = q

	var todos []model.Todo
	if err := c.do(ctx, req, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// GetTodo returns a single todo by ID.
func (c *Client) GetTodo(ctx context.Context, id int64) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, NewRequest(http.MethodGet, todoPath(id)), &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// CreateTodo creates a todo and returns the server record.
func (c *Client) CreateTodo(ctx context.Context, in model.TodoCreate) (*model.Todo, error) {
	const path = "/todos/"
	if err := validatePayload(http.MethodPost, path, in); err != nil {
		return nil, err
	}

	req := NewRequest(http.MethodPost, path)
	req.Body = in

	var todo model.Todo
	if err := c.do(ctx, req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo applies a partial update and returns the server record.
func (c *Client) UpdateTodo(ctx context.Context, id int64, in model.TodoUpdate) (*model.Todo, error) {
	path := todoPath(id)
	if err := validatePayload(http.MethodPut, path, in); err != nil {
		return nil, err
	}

	req := NewRequest(http.MethodPut, path)
	req.Body = in

	var todo model.Todo
	if err := c.do(ctx, req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo deletes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, NewRequest(http.MethodDelete, todoPath(id)), nil)
}

// ToggleComplete flips the completion flag and returns the server record.
func (c *Client) ToggleComplete(ctx context.Context, id int64) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, NewRequest(http.MethodPatch, todoPath(id)+"/complete"), &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// TodoStats returns the current user's todo counts.
func (c *Client) TodoStats(ctx context.Context) (*model.TodoStats, error) {
	var stats model.TodoStats
	if err := c.do(ctx, NewRequest(http.MethodGet, "/todos/stats/summary"), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func todoPath(id int64) string {
	return fmt.Sprintf("/todos/%d", id)
}
