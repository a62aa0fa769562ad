package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"atelier/internal/client"
	"atelier/internal/client/session"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServerURL  string
	flagVerbose    bool
)

// httpClientTimeout bounds a single HTTP exchange. The lifecycle manager's
// per-request deadline is stricter and configured separately.
const httpClientTimeout = 60 * time.Second

// Config is the favctl config file, loaded from
// ~/.config/favctl/config.yaml by default.
type Config struct {
	ServerURL      string `yaml:"server_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	SessionFile    string `yaml:"session_file"`
}

// app holds everything a subcommand needs after the root pre-run phase.
type app struct {
	cfg     *Config
	store   *session.Store
	api     *client.Client
	manager *client.Manager
	logger  *slog.Logger
	timeout time.Duration
}

var current *app

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favctl",
		Short:   "Favorites tree CLI",
		Long:    "Manage a server-side favorites tree: folders, file references, batch import and export.",
		Version: version,
		// Silence Cobra's default error/usage printing - main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			current = a
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "server base URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newFavCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newSessionCmd())

	return cmd
}

// newApp loads configuration and wires the API client, session store, and
// lifecycle manager.
func newApp() (*app, error) {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return nil, err
	}
	if flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store := session.NewStore(cfg.SessionFile)
	if err := store.Load(); err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	expiry := client.NewExpiryBroadcast()
	expiry.Subscribe(sessionExpired(store, logger))

	api := client.NewClient(cfg.ServerURL, &http.Client{Timeout: httpClientTimeout}, store, logger)
	manager := client.NewManager(timeout, expiry, logger)

	return &app{
		cfg:     cfg,
		store:   store,
		api:     api,
		manager: manager,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// sessionExpired handles the one session-expiry notification per epoch:
// drop the stored credentials so later commands start unauthenticated, then
// tell the user how to log in again.
func sessionExpired(store *session.Store, logger *slog.Logger) func() {
	return func() {
		if err := store.Clear(); err != nil {
			logger.Warn("clearing expired session", "error", err)
		}
		fmt.Fprintln(os.Stderr, "session expired: run 'favctl session set <token>' to log in again")
	}
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "favctl", "config.yaml")
	}

	cfg := &Config{
		ServerURL:      "http://localhost:8080",
		TimeoutSeconds: 30,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.SessionFile == "" {
		cfg.SessionFile = filepath.Join(filepath.Dir(path), "session.json")
	}

	return cfg, nil
}

// issue runs one API call through the lifecycle manager and folds the
// outcome into a CLI-friendly error.
func (a *app) issue(ctx context.Context, op string, fn client.RequestFn) error {
	outcome := a.manager.Issue(ctx, op, fn)
	switch outcome.Kind {
	case client.OutcomeSuccess:
		return nil
	case client.OutcomeTimeout:
		return fmt.Errorf("%s timed out after %s; the server may still have applied it", op, a.timeout)
	case client.OutcomeCanceled:
		return fmt.Errorf("%s canceled", op)
	case client.OutcomeUnauthorized:
		return errors.New("not logged in or session expired: run 'favctl session set <token>'")
	default:
		return outcome.Err
	}
}
