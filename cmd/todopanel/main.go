package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/todopanel/internal/config"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// command is one CLI subcommand.
type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"register":     {summary: "create an account", run: cmdRegister},
	"verify-email": {summary: "confirm an email address with its token", run: cmdVerifyEmail},
	"login":        {summary: "sign in and store the session", run: cmdLogin},
	"logout":       {summary: "forget the stored session", run: cmdLogout},
	"whoami":       {summary: "show the signed-in user", run: cmdWhoami},
	"status":       {summary: "show the stored session without calling the backend", run: cmdStatus},
	"list":         {summary: "list your todos", run: cmdList},
	"add":          {summary: "create a todo", run: cmdAdd},
	"edit":         {summary: "change a todo's title, description or priority", run: cmdEdit},
	"toggle":       {summary: "flip a todo's completion flag", run: cmdToggle},
	"rm":           {summary: "delete a todo", run: cmdRemove},
	"stats":        {summary: "summarize your todos", run: cmdStats},
	"admin-users":  {summary: "list users (admin)", run: cmdAdminUsers},
	"admin-role":   {summary: "change a user's role (admin)", run: cmdAdminRole},
	"admin-todos":  {summary: "list every user's todos (admin)", run: cmdAdminTodos},
	"admin-stats":  {summary: "show the system overview (admin)", run: cmdAdminStats},
	"serve":        {summary: "run the local JSON panel", run: cmdServe},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		printError(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage()
		return flag.ErrHelp
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Debug("config loaded",
		"api_url", cfg.APIURL,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"persist_credentials", cfg.PersistCredentials(),
		"http_cache", cfg.HTTPCache,
		"breaker", cfg.BreakerEnabled,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire adapters and services.
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("error closing app", "error", closeErr)
		}
	}()

	return cmd.run(ctx, a, args[1:])
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: todopanel <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", name, commands[name].summary)
	}
}

func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	switch {
	case errors.Is(err, driven.ErrSessionExpired):
		red.Fprintln(os.Stderr, "session expired: run `todopanel login` to sign in again")
	case errors.Is(err, driven.ErrValidation), errors.Is(err, driven.ErrServer), errors.Is(err, driven.ErrNetwork):
		red.Fprintf(os.Stderr, "error: %s\n", driven.UserMessage(err))
	default:
		red.Fprintf(os.Stderr, "error: %s\n", err)
	}
	slog.Debug("command failed", "error", err)
}
