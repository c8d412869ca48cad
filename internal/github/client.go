// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
)

const defaultPerPage = 10

// Options configures a Client.
type Options struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// BaseURL overrides the REST endpoint, e.g. for GitHub Enterprise.
	BaseURL string
	// OAuthEndpoint overrides github.com's authorize and token URLs.
	OAuthEndpoint *oauth2.Endpoint
	PerPage       int
	HTTPClient    *http.Client
}

// Client is a wrapper around the go-github client. Every call runs with the
// access token of the user the proxy is acting for.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	baseURL    *url.URL
	perPage    int
	logger     *slog.Logger
}

// NewClient creates and configures a new Client instance.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	endpoint := githuboauth.Endpoint
	if opts.OAuthEndpoint != nil {
		endpoint = *opts.OAuthEndpoint
	}
	// GitHub expects the client credentials in the request body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Scopes:       opts.Scopes,
			Endpoint:     endpoint,
		},
		httpClient: opts.HTTPClient,
		perPage:    opts.PerPage,
		logger:     logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.perPage <= 0 {
		c.perPage = defaultPerPage
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

// AuthCodeURL returns the github.com page the user is sent to for sign in.
func (c *Client) AuthCodeURL() string {
	return c.oauth.AuthCodeURL("")
}

// ExchangeCode trades an OAuth callback code for a user access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", &custom_errors.TransportError{Op: "exchange oauth code", Err: err}
	}
	return tok.AccessToken, nil
}

// ListRepositories fetches one page of the authenticated user's repositories.
// An empty slice means the page is past the end of the data.
func (c *Client) ListRepositories(ctx context.Context, token string, page int) ([]*github.Repository, error) {
	if page < 1 {
		return nil, &custom_errors.ErrInvalidPage{Page: page}
	}
	c.logger.Debug("Fetching repositories page", "page", page, "per_page", c.perPage)

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: c.perPage},
	}
	repos, _, err := c.forToken(token).Repositories.ListByAuthenticatedUser(ctx, opts)
	if err != nil {
		return nil, mapError("list repositories", err)
	}
	if repos == nil {
		repos = []*github.Repository{}
	}
	return repos, nil
}

// GetUser fetches the authenticated user.
func (c *Client) GetUser(ctx context.Context, token string) (*github.User, error) {
	user, _, err := c.forToken(token).Users.Get(ctx, "")
	if err != nil {
		return nil, mapError("get user", err)
	}
	return user, nil
}

// CreateRepository creates a repository owned by the authenticated user.
func (c *Client) CreateRepository(ctx context.Context, token string, req model.CreateRepositoryRequest) (*github.Repository, error) {
	allowForking := true
	if req.AllowForking != nil {
		allowForking = *req.AllowForking
	}
	repo := &github.Repository{
		Name:         github.String(req.Name),
		Description:  github.String(req.Description),
		Private:      github.Bool(strings.EqualFold(req.Visibility, string(model.VisibilityPrivate))),
		AutoInit:     github.Bool(req.AutoInit),
		AllowForking: github.Bool(allowForking),
	}

	created, _, err := c.forToken(token).Repositories.Create(ctx, "", repo)
	if err != nil {
		return nil, mapError("create repository", err)
	}
	c.logger.Info("Repository created", "repo", created.GetFullName())
	return created, nil
}

// GetRepositoryByID fetches repository details by numeric id.
func (c *Client) GetRepositoryByID(ctx context.Context, token string, id int64) (*github.Repository, error) {
	repo, _, err := c.forToken(token).Repositories.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("get repository", err)
	}
	return repo, nil
}

// ListLanguages returns the bytes of code per language for a repository.
func (c *Client) ListLanguages(ctx context.Context, token string, id int64) (map[string]int, error) {
	gh := c.forToken(token)
	repo, _, err := gh.Repositories.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("get repository", err)
	}

	languages, _, err := gh.Repositories.ListLanguages(ctx, repo.GetOwner().GetLogin(), repo.GetName())
	if err != nil {
		return nil, mapError("list languages", err)
	}
	return languages, nil
}

func (c *Client) forToken(token string) *github.Client {
	gh := github.NewClient(c.httpClient).WithAuthToken(token)
	if c.baseURL != nil {
		gh.BaseURL = c.baseURL
	}
	return gh
}

// mapError translates go-github failures into the application's error taxonomy.
func mapError(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", op, custom_errors.ErrUnauthorized)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, custom_errors.ErrForbidden)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, custom_errors.ErrNotFound)
		}
	}
	return &custom_errors.TransportError{Op: op, Err: err}
}
