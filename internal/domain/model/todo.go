package model

// Todo is a single todo record as returned by the backend. The server copy is
// authoritative; local copies are predictions until confirmed.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    Priority   `json:"priority"`
	IsCompleted bool       `json:"is_completed"`
	OwnerID     int64      `json:"owner_id"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   *Timestamp `json:"updated_at"`
	CompletedAt *Timestamp `json:"completed_at"`
}

// Toggled returns a copy of the todo with its completion flag inverted.
// Server-computed fields (CompletedAt, UpdatedAt) are left as-is; the server
// response replaces them on commit.
func (t Todo) Toggled() Todo {
	t.IsCompleted = !t.IsCompleted
	return t
}

// TodoWithOwner is a todo enriched with its owner, returned by admin listings.
type TodoWithOwner struct {
	Todo
	Owner User `json:"owner"`
}

// TodoCreate is the payload for creating a todo.
type TodoCreate struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
}

// TodoUpdate is the partial payload for updating a todo. Nil fields are left
// unchanged by the server.
type TodoUpdate struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Priority    *Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	IsCompleted *bool     `json:"is_completed,omitempty"`
}

// Apply returns a copy of t with the non-nil fields of u applied. Used to
// predict the server's result for an optimistic update.
func (u TodoUpdate) Apply(t Todo) Todo {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		d := *u.Description
		t.Description = &d
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.IsCompleted != nil {
		t.IsCompleted = *u.IsCompleted
	}
	return t
}

// TodoFilter mirrors the query parameters accepted by GET /todos/.
// Zero values are omitted from the request.
type TodoFilter struct {
	Skip      int
	Limit     int
	Completed *bool
	Priority  Priority
}

// AdminTodoFilter mirrors the query parameters accepted by GET /admin/todos.
type AdminTodoFilter struct {
	Skip      int
	Limit     int
	Completed *bool
	UserID    int64
}
