// Command diary is the terminal front end of the diabetic diary.
//
// Usage:
//
//	diary [-config diary.yaml] <command> [flags] [args]
//
// Commands: register, login, logout, profile, recognize, manual, history,
// show. Run "diary <command> -h" for the flags of each command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baobabichh/diabetic-diary-app/internal/api"
	"github.com/baobabichh/diabetic-diary-app/internal/config"
	"github.com/baobabichh/diabetic-diary-app/internal/middleware"
	"github.com/baobabichh/diabetic-diary-app/internal/navigation"
	"github.com/baobabichh/diabetic-diary-app/internal/service"
	"github.com/baobabichh/diabetic-diary-app/internal/session"
	"github.com/baobabichh/diabetic-diary-app/internal/storage/sqlite"
	"github.com/baobabichh/diabetic-diary-app/pkg/logging"
)

// app bundles everything a command needs.
type app struct {
	cfg         *config.Config
	session     *session.Session
	nav         *navigation.Navigator
	client      *api.Client
	auth        *service.AuthService
	recognition *service.RecognitionService
	history     *service.HistoryService
	out         io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
	// main commands require a signed-in session.
	main bool
}

var commands = []command{
	{"register", "create an account and sign in", runRegister, false},
	{"login", "sign in", runLogin, false},
	{"logout", "sign out", runLogout, true},
	{"profile", "show the signed-in user", runProfile, true},
	{"recognize", "recognize a meal photo and save a record", runRecognize, true},
	{"manual", "save a record without a photo", runManual, true},
	{"history", "list saved records", runHistory, true},
	{"show", "show one record with its food data", runShow, true},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: diary [-config file] <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", os.Getenv("DIARY_CONFIG"), "path to a YAML config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diary: %v\n", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	var cmd *command
	for i := range commands {
		if commands[i].name == flag.Arg(0) {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "diary: unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diary: %v\n", err)
		os.Exit(1)
	}
	code := execute(ctx, a, cmd, flag.Args()[1:])
	cleanup()
	os.Exit(code)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, func(), error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Debug("Storage initialized", "database", cfg.DBPath)

	sess := session.New(store)
	sess.Init(ctx)

	reg := prometheus.NewRegistry()
	client, err := api.New(cfg.BackendURL, sess, api.WithMetrics(middleware.NewMetrics(reg)))
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	policy := service.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.MaxPolls}
	recognition := service.NewRecognitionService(client, policy, service.NewRecognitionMetrics(reg), slog.Default())

	a := &app{
		cfg:         cfg,
		session:     sess,
		nav:         navigation.New(sess),
		client:      client,
		auth:        service.NewAuthService(client, sess, slog.Default()),
		recognition: recognition,
		history:     service.NewHistoryService(client, slog.Default()),
		out:         os.Stdout,
	}
	cleanup := func() {
		recognition.Close()
		store.Close()
	}
	return a, cleanup, nil
}

// execute runs cmd and turns its error into an alert and exit status.
func execute(ctx context.Context, a *app, cmd *command, args []string) int {
	if cmd.main {
		if err := a.nav.RequireMain(); err != nil {
			alert(err)
			return 1
		}
	}

	err := cmd.run(ctx, a, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}

	alert(err)
	if cmd.main && api.IsUnauthorized(err) {
		fmt.Fprintln(os.Stderr, "Your session was rejected; run \"diary login\" again.")
	}
	return 1
}

func alert(err error) {
	fmt.Fprintf(os.Stderr, "alert: %v\n", err)
}
