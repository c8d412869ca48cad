// Package client talks to the dashboard proxy. It is the upstream paginated
// source of the terminal dashboard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v62/github"

	custom_errors "github-repo-dashboard/internal/errors"
	ghclient "github-repo-dashboard/internal/github"
	"github-repo-dashboard/internal/model"
)

// Client is an HTTP client of the proxy API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the proxy at baseURL acting with token.
func New(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// LoginURL is where a browser starts the GitHub sign in.
func (c *Client) LoginURL() string {
	return c.baseURL + "/auth/github"
}

// FetchPage returns one validated page of repositories.
func (c *Client) FetchPage(ctx context.Context, page int, token string) ([]model.RepositorySummary, error) {
	if page < 1 {
		return nil, &custom_errors.ErrInvalidPage{Page: page}
	}
	q := url.Values{"page": {strconv.Itoa(page)}}

	var raw []*github.Repository
	if err := c.do(ctx, http.MethodGet, "/fetch-repos?"+q.Encode(), token, nil, &raw); err != nil {
		return nil, err
	}
	repos := ghclient.SummarizeAll(raw, c.logger)
	if len(raw) > 0 && len(repos) == 0 {
		return nil, fmt.Errorf("page %d: %w", page, custom_errors.ErrPageRejected)
	}
	return repos, nil
}

// Repository returns the full details of a repository.
func (c *Client) Repository(ctx context.Context, id int64) (*github.Repository, error) {
	var repo github.Repository
	if err := c.do(ctx, http.MethodGet, "/repo/"+strconv.FormatInt(id, 10), c.token, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// Languages returns the language usage of a repository.
func (c *Client) Languages(ctx context.Context, id int64) (model.LanguageBreakdown, error) {
	var out model.LanguageBreakdown
	err := c.do(ctx, http.MethodGet, "/repo/"+strconv.FormatInt(id, 10)+"/languages", c.token, nil, &out)
	return out, err
}

// User returns the authenticated user.
func (c *Client) User(ctx context.Context) (*github.User, error) {
	var user github.User
	if err := c.do(ctx, http.MethodGet, "/user", c.token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateRepository creates a repository through the proxy.
func (c *Client) CreateRepository(ctx context.Context, req model.CreateRepositoryRequest) (*github.Repository, error) {
	var out struct {
		Message string             `json:"message"`
		Repo    *github.Repository `json:"repo"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-repo", c.token, req, &out); err != nil {
		return nil, err
	}
	return out.Repo, nil
}

// Review sends a snippet to the AI code review endpoint.
func (c *Client) Review(ctx context.Context, snippet string) (string, error) {
	var out struct {
		Review string `json:"review"`
	}
	body := map[string]string{"codeSnippet": snippet}
	if err := c.do(ctx, http.MethodPost, "/codeReview", "", body, &out); err != nil {
		var se *statusCodeError
		if errors.As(err, &se) && se.code == http.StatusServiceUnavailable {
			return "", fmt.Errorf("code review: %w", custom_errors.ErrReviewerDisabled)
		}
		return "", err
	}
	return out.Review, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	c.logger.Debug("Calling proxy", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &custom_errors.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &custom_errors.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, custom_errors.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, custom_errors.ErrForbidden)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, custom_errors.ErrNotFound)
	}
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &custom_errors.TransportError{Op: op, Err: &statusCodeError{code: resp.StatusCode, msg: msg}}
}

type statusCodeError struct {
	code int
	msg  string
}

func (e *statusCodeError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.msg)
}
