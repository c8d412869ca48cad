// Package review asks a language model to review a code snippet.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	custom_errors "github-repo-dashboard/internal/errors"
)

const systemPrompt = `You are a senior software engineer doing a code review.
Review the code the user sends. Point out bugs, security problems, readability
issues and possible improvements, and show corrected code where it helps.
Answer in Markdown.`

// Config holds the settings of an OpenAI-compatible chat endpoint.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// Reviewer produces Markdown reviews through a chat completion API.
type Reviewer struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	logger        *slog.Logger
}

// NewReviewer creates a Reviewer. It returns nil when no API key is
// configured; the API answers review requests with 503 in that case.
func NewReviewer(cfg Config, logger *slog.Logger) *Reviewer {
	if cfg.APIKey == "" {
		return nil
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	r := &Reviewer{
		client:        openai.NewClientWithConfig(config),
		model:         cfg.Model,
		maxRetries:    cfg.MaxRetries,
		initialDelay:  cfg.InitialDelay,
		backoffFactor: cfg.BackoffFactor,
		logger:        logger,
	}
	if r.model == "" {
		r.model = openai.GPT4oMini
	}
	if r.maxRetries < 0 {
		r.maxRetries = 0
	}
	if r.initialDelay == 0 {
		r.initialDelay = 2 * time.Second
	}
	if r.backoffFactor == 0 {
		r.backoffFactor = 2.0
	}
	return r
}

// Review returns the model's Markdown review of snippet.
func (r *Reviewer) Review(ctx context.Context, snippet string) (string, error) {
	if r == nil {
		return "", custom_errors.ErrReviewerDisabled
	}
	if strings.TrimSpace(snippet) == "" {
		return "", &custom_errors.ValidationError{Field: "codeSnippet", Reason: "must not be empty"}
	}

	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: snippet},
		},
	}

	var resp openai.ChatCompletionResponse
	err := r.withRetry(ctx, func() error {
		var err error
		resp, err = r.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", &custom_errors.TransportError{Op: "code review", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &custom_errors.TransportError{Op: "code review", Err: errors.New("no choices in response")}
	}

	r.logger.Info("Code review completed",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

// withRetry executes fn with exponential backoff on retryable errors.
func (r *Reviewer) withRetry(ctx context.Context, fn func() error) error {
	delay := r.initialDelay
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < r.maxRetries {
			r.logger.Warn("Code review request failed, retrying", "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * r.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}
