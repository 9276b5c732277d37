package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ericfisherdev/todopanel/internal/adapter/driven/api"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("todopanel "+name, flag.ContinueOnError)
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "email address")
	username := fs.String("u", "", "username")
	fullName := fs.String("name", "", "full name")
	password := fs.String("p", "", "password (default: $TODOPANEL_PASSWORD, then prompt)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := resolvePassword(*password)
	if err != nil {
		return err
	}

	in := model.UserCreate{Email: *email, Username: *username, Password: pw}
	if *fullName != "" {
		in.FullName = fullName
	}

	user, err := a.client.Register(ctx, in)
	if err != nil {
		return err
	}
	green.Fprintf(a.out, "registered %s <%s>\n", user.Username, user.Email)
	if !user.IsVerified {
		faint.Fprintln(a.out, "check your inbox, then run `todopanel verify-email <token>`")
	}
	return nil
}

func cmdVerifyEmail(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: todopanel verify-email <token>")
	}
	msg, err := a.client.VerifyEmail(ctx, args[0])
	if err != nil {
		return err
	}
	green.Fprintln(a.out, msg)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("u", os.Getenv("TODOPANEL_USERNAME"), "username (default: $TODOPANEL_USERNAME)")
	password := fs.String("p", "", "password (default: $TODOPANEL_PASSWORD, then prompt)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("login: -u is required")
	}

	pw, err := resolvePassword(*password)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, *username, pw)
	if err != nil {
		return err
	}
	green.Fprintf(a.out, "logged in as %s (%s)\n", user.Username, user.Role)
	if !a.cfg.PersistCredentials() {
		yellow.Fprintln(a.out, "session is not persisted: set TODOPANEL_SECRET_KEY to keep it between runs")
	}
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	user, err := a.session.CurrentUser(ctx)
	if err != nil {
		return err
	}
	printUser(a, *user)
	return nil
}

// cmdStatus inspects the stored session locally. It never calls the backend.
func cmdStatus(ctx context.Context, a *app, _ []string) error {
	pair, err := a.session.Credentials(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "backend:       %s\n", a.cfg.APIURL)
	fmt.Fprintf(a.out, "store:         %s\n", a.storeKind())
	fmt.Fprintf(a.out, "refresh state: %s\n", a.client.Refresher().State())

	if !pair.HasAccess() {
		yellow.Fprintln(a.out, "session:       not logged in")
		return nil
	}

	claims, err := api.ParseAccessClaims(pair.Access)
	if err != nil {
		red.Fprintf(a.out, "session:       unreadable access token (%v)\n", err)
		return nil
	}

	fmt.Fprintf(a.out, "user:          %s (id %d, %s)\n", claims.Username, claims.UserID, claims.Role)
	switch {
	case claims.ExpiresAt.IsZero():
		fmt.Fprintln(a.out, "access token:  no expiry")
	case claims.Expired(time.Now()):
		yellow.Fprintf(a.out, "access token:  expired %s ago\n", time.Since(claims.ExpiresAt).Round(time.Second))
	default:
		green.Fprintf(a.out, "access token:  valid for %s\n", time.Until(claims.ExpiresAt).Round(time.Second))
	}
	if a.creds != nil {
		if saved, err := a.creds.UpdatedAt(ctx); err == nil && !saved.IsZero() {
			fmt.Fprintf(a.out, "saved:         %s\n", saved.Local().Format(time.DateTime))
		}
	}
	if pair.HasRefresh() {
		fmt.Fprintln(a.out, "refresh token: present")
	} else {
		yellow.Fprintln(a.out, "refresh token: missing, the session ends when the access token expires")
	}
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	completed := fs.String("completed", "", "filter by completion: true or false")
	priority := fs.String("priority", "", "filter by priority: low, medium or high")
	skip := fs.Int("skip", 0, "records to skip")
	limit := fs.Int("limit", 0, "maximum records to return (at most 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := model.TodoFilter{Skip: *skip, Limit: *limit, Priority: model.Priority(*priority)}
	var err error
	if filter.Completed, err = parseOptionalBool("completed", *completed); err != nil {
		return err
	}

	todos, err := a.todos.Load(ctx, filter)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		faint.Fprintln(a.out, "no todos")
		return nil
	}
	for _, t := range todos {
		printTodo(a, t)
	}
	return nil
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add")
	description := fs.String("d", "", "description")
	priority := fs.String("priority", "", "low, medium or high (default medium)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := model.TodoCreate{
		Title:    strings.Join(fs.Args(), " "),
		Priority: model.Priority(*priority),
	}
	if *description != "" {
		in.Description = description
	}

	todo, err := a.todos.Create(ctx, in)
	if err != nil {
		return err
	}
	green.Fprint(a.out, "created ")
	printTodo(a, *todo)
	return nil
}

func cmdEdit(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("edit")
	title := fs.String("t", "", "new title")
	description := fs.String("d", "", "new description")
	priority := fs.String("priority", "", "new priority")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseIDArg(fs.Args())
	if err != nil {
		return err
	}

	var in model.TodoUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			in.Title = title
		case "d":
			in.Description = description
		case "priority":
			p := model.Priority(*priority)
			in.Priority = &p
		}
	})

	if err := a.cacheTodo(ctx, id); err != nil {
		return err
	}
	todo, err := a.todos.Update(ctx, id, in).Wait()
	if err != nil {
		return err
	}
	green.Fprint(a.out, "updated ")
	printTodo(a, *todo)
	return nil
}

func cmdToggle(ctx context.Context, a *app, args []string) error {
	id, err := parseIDArg(args)
	if err != nil {
		return err
	}

	if err := a.cacheTodo(ctx, id); err != nil {
		return err
	}
	todo, err := a.todos.ToggleComplete(ctx, id).Wait()
	if err != nil {
		return err
	}
	printTodo(a, *todo)
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	id, err := parseIDArg(args)
	if err != nil {
		return err
	}
	if err := a.todos.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted #%d\n", id)
	return nil
}

func cmdStats(ctx context.Context, a *app, _ []string) error {
	stats, err := a.todos.Stats(ctx)
	if err != nil {
		return err
	}
	bold.Fprintf(a.out, "%d todos\n", stats.Total)
	fmt.Fprintf(a.out, "  completed: %d\n  pending:   %d\n", stats.Completed, stats.Pending)
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		fmt.Fprintf(a.out, "  %-10s %d\n", string(p)+":", stats.ByPriority[string(p)])
	}
	return nil
}

// cacheTodo fetches one todo into the local cache so a mutation can predict
// over its current value.
func (a *app) cacheTodo(ctx context.Context, id int64) error {
	todo, err := a.todos.Get(ctx, id)
	if err != nil {
		return err
	}
	a.todos.Cache().Insert(*todo)
	return nil
}

func printTodo(a *app, t model.Todo) {
	mark := "[ ]"
	if t.IsCompleted {
		mark = green.Sprint("[x]")
	}
	title := t.Title
	if t.IsCompleted {
		title = faint.Sprint(title)
	}
	fmt.Fprintf(a.out, "%s #%d %s %s\n", mark, t.ID, title, priorityLabel(t.Priority))
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return red.Sprint("(high)")
	case model.PriorityLow:
		return faint.Sprint("(low)")
	default:
		return yellow.Sprint("(" + string(p) + ")")
	}
}

func printUser(a *app, u model.User) {
	bold.Fprint(a.out, u.Username)
	fmt.Fprintf(a.out, " #%d <%s> %s", u.ID, u.Email, u.Role)
	if !u.IsActive {
		red.Fprint(a.out, " inactive")
	}
	if !u.IsVerified {
		yellow.Fprint(a.out, " unverified")
	}
	fmt.Fprintln(a.out)
}

// resolvePassword returns the flag value, then $TODOPANEL_PASSWORD, then a
// line read from stdin.
func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("TODOPANEL_PASSWORD"); v != "" {
		return v, nil
	}

	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one id argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

// parseOptionalBool returns nil for an empty value.
func parseOptionalBool(name, v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("-%s: invalid boolean %q", name, v)
	}
	return &b, nil
}
