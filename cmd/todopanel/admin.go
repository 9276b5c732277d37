package main

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

func cmdAdminUsers(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("admin-users")
	role := fs.String("role", "", "filter by role: user or admin")
	active := fs.String("active", "", "filter by active flag: true or false")
	skip := fs.Int("skip", 0, "records to skip")
	limit := fs.Int("limit", 0, "maximum records to return (at most 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := model.UserFilter{Skip: *skip, Limit: *limit, Role: model.Role(*role)}
	var err error
	if filter.IsActive, err = parseOptionalBool("active", *active); err != nil {
		return err
	}

	users, err := a.client.ListUsers(ctx, filter)
	if err != nil {
		return err
	}
	for _, u := range users {
		printUser(a, u)
	}
	return nil
}

func cmdAdminRole(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: todopanel admin-role <user-id> <user|admin>")
	}
	id, err := parseIDArg(args[:1])
	if err != nil {
		return err
	}

	user, err := a.client.UpdateUserRole(ctx, id, model.Role(args[1]))
	if err != nil {
		return err
	}
	green.Fprint(a.out, "updated ")
	printUser(a, *user)
	return nil
}

func cmdAdminTodos(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("admin-todos")
	completed := fs.String("completed", "", "filter by completion: true or false")
	userID := fs.Int64("user", 0, "only todos owned by this user id")
	skip := fs.Int("skip", 0, "records to skip")
	limit := fs.Int("limit", 0, "maximum records to return (at most 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := model.AdminTodoFilter{Skip: *skip, Limit: *limit, UserID: *userID}
	var err error
	if filter.Completed, err = parseOptionalBool("completed", *completed); err != nil {
		return err
	}

	todos, err := a.client.ListAllTodos(ctx, filter)
	if err != nil {
		return err
	}
	for _, t := range todos {
		faint.Fprintf(a.out, "%-12s ", t.Owner.Username)
		printTodo(a, t.Todo)
	}
	return nil
}

func cmdAdminStats(ctx context.Context, a *app, _ []string) error {
	stats, err := a.client.SystemStats(ctx)
	if err != nil {
		return err
	}

	bold.Fprintln(a.out, "users")
	fmt.Fprintf(a.out, "  total:    %d\n  active:   %d\n  verified: %d\n",
		stats.Users.Total, stats.Users.Active, stats.Users.Verified)
	for _, r := range []model.Role{model.RoleAdmin, model.RoleUser} {
		fmt.Fprintf(a.out, "  %-9s %d\n", string(r)+":", stats.Users.ByRole[string(r)])
	}

	bold.Fprintln(a.out, "todos")
	fmt.Fprintf(a.out, "  total:     %d\n  completed: %d\n  pending:   %d\n",
		stats.Todos.Total, stats.Todos.Completed, stats.Todos.Pending)
	return nil
}
