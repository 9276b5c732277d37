package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// maxPageLimit is the largest page size the backend accepts.
const maxPageLimit = 100

func pageQuery(skip, limit int) (url.Values, error) {
	if skip < 0 {
		return nil, fmt.Errorf("skip must be >= 0, got %d", skip)
	}
	if limit < 0 || limit > maxPageLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxPageLimit, limit)
	}

	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q, nil
}

func todoQuery(f model.TodoFilter) (url.Values, error) {
	q, err := pageQuery(f.Skip, f.Limit)
	if err != nil {
		return nil, err
	}
	if f.Completed != nil {
		q.Set("completed", strconv.FormatBool(*f.Completed))
	}
	if f.Priority != "" {
		if !f.Priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q", f.Priority)
		}
		q.Set("priority", string(f.Priority))
	}
	return q, nil
}

func userQuery(f model.UserFilter) (url.Values, error) {
	q, err := pageQuery(f.Skip, f.Limit)
	if err != nil {
		return nil, err
	}
	if f.Role != "" {
		if !f.Role.Valid() {
			return nil, fmt.Errorf("invalid role %q", f.Role)
		}
		q.Set("role", string(f.Role))
	}
	if f.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*f.IsActive))
	}
	return q, nil
}

func adminTodoQuery(f model.AdminTodoFilter) (url.Values, error) {
	q, err := pageQuery(f.Skip, f.Limit)
	if err != nil {
		return nil, err
	}
	if f.Completed != nil {
		q.Set("completed", strconv.FormatBool(*f.Completed))
	}
	if f.UserID != 0 {
		q.Set("user_id", strconv.FormatInt(f.UserID, 10))
	}
	return q, nil
}
