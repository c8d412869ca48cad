// cmd/service/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github-repo-dashboard/internal/api"
	"github-repo-dashboard/internal/config"
	"github-repo-dashboard/internal/github"
	"github-repo-dashboard/internal/review"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize application components
	ghClient, err := github.NewClient(github.Options{
		ClientID:     cfg.GithubClientID,
		ClientSecret: cfg.GithubClientSecret,
		Scopes:       cfg.GithubOAuthScopes,
		BaseURL:      cfg.GithubAPIURL,
		PerPage:      cfg.ReposPerPage,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	reviewer := review.NewReviewer(review.Config{
		APIKey:     cfg.ReviewAPIKey,
		BaseURL:    cfg.ReviewBaseURL,
		Model:      cfg.ReviewModel,
		Timeout:    cfg.ReviewTimeout,
		MaxRetries: cfg.ReviewMaxRetries,
	}, logger)
	if reviewer == nil {
		logger.Warn("REVIEW_API_KEY is not set, code review is disabled")
	}

	router := api.NewRouter(ghClient, reviewer, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)
	server := api.NewServer(":"+strconv.Itoa(cfg.Port), router, logger)

	// 5. Serve until a shutdown signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("Application started", "port", cfg.Port)
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Application stopped")
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
