// cmd/dashboard/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/go-github/v62/github"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github-repo-dashboard/internal/client"
	"github-repo-dashboard/internal/config"
	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
	"github-repo-dashboard/internal/settings"
	"github-repo-dashboard/internal/syncer"
)

// proxyClient is the part of the proxy API the commands use.
type proxyClient interface {
	syncer.Source
	LoginURL() string
	User(ctx context.Context) (*github.User, error)
	Repository(ctx context.Context, id int64) (*github.Repository, error)
	Languages(ctx context.Context, id int64) (model.LanguageBreakdown, error)
	CreateRepository(ctx context.Context, req model.CreateRepositoryRequest) (*github.Repository, error)
	Review(ctx context.Context, snippet string) (string, error)
}

// app carries what the commands share. Fields left nil are filled from the
// configuration before a command runs.
type app struct {
	v      *viper.Viper
	cfg    *config.ClientConfig
	logger *slog.Logger
	prefs  *settings.Store
	client proxyClient
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	if a.v == nil {
		a.v = config.NewClientViper()
	}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Browse your GitHub repositories through the dashboard proxy",
		Long: `A terminal dashboard for the GitHub repositories of the signed in user.

It talks to the dashboard proxy, loads repositories page by page and lets you
search, sort and inspect them. Preferences are kept in a YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("server", "", "dashboard proxy URL (or DASHBOARD_SERVER_URL)")
	flags.String("token", "", "GitHub access token (or GITHUB_TOKEN)")
	flags.String("prefs", "", "preferences file (or DASHBOARD_PREFERENCES)")
	flags.String("log-level", "", "debug, info, warn or error (or LOG_LEVEL)")
	_ = a.v.BindPFlag("DASHBOARD_SERVER_URL", flags.Lookup("server"))
	_ = a.v.BindPFlag("GITHUB_TOKEN", flags.Lookup("token"))
	_ = a.v.BindPFlag("DASHBOARD_PREFERENCES", flags.Lookup("prefs"))
	_ = a.v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))

	cmd.AddCommand(
		newReposCmd(a),
		newBrowseCmd(a),
		newRepoCmd(a),
		newCreateCmd(a),
		newWhoamiCmd(a),
		newReviewCmd(a),
		newLoginCmd(a),
		newPrefsCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	if a.cfg == nil {
		cfg, err := config.LoadClientConfig(a.v)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		a.cfg = cfg
	}

	if a.logger == nil {
		logLevel := new(slog.LevelVar)
		setLogLevel(a.cfg.LogLevel, logLevel)
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}

	if a.prefs == nil {
		prefs, err := settings.Load(a.cfg.PreferencesPath)
		if err != nil {
			return err
		}
		a.prefs = prefs
	}

	if a.client == nil {
		a.client = client.New(a.cfg.ServerURL, a.cfg.GithubToken, nil, a.logger)
	}
	return nil
}

func (a *app) requireToken() error {
	if a.cfg.GithubToken == "" {
		return fmt.Errorf("%w: set GITHUB_TOKEN or pass --token (see `dashboard login`)", custom_errors.ErrMissingToken)
	}
	return nil
}

func (a *app) savePrefs() error {
	if err := a.prefs.Save(a.cfg.PreferencesPath); err != nil {
		return err
	}
	a.logger.Debug("Preferences saved", "path", a.cfg.PreferencesPath)
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "info":
		v.Set(slog.LevelInfo)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelWarn)
	}
}
