// internal/github/client_test.go
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
)

// setupTestClient creates a httptest server and a Client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := NewClient(Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"repo", "user"},
		BaseURL:      server.URL,
		OAuthEndpoint: &oauth2.Endpoint{
			AuthURL:  server.URL + "/login/oauth/authorize",
			TokenURL: server.URL + "/login/oauth/access_token",
		},
		PerPage:    10,
		HTTPClient: server.Client(),
	}, logger)
	require.NoError(t, err)

	return client, server
}

func TestClient_ListRepositories(t *testing.T) {
	t.Run("requests the given page with the user's token", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/user/repos", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "10", r.URL.Query().Get("per_page"))
			assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"id": 1, "name": "repo", "owner": {"login": "test"}}]`)
		})
		client, _ := setupTestClient(t, handler)

		repos, err := client.ListRepositories(context.Background(), "user-token", 2)

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		require.Len(t, repos, 1)
		assert.Equal(t, "repo", repos[0].GetName())
	})

	t.Run("returns an empty page past the end", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `[]`)
		})
		client, _ := setupTestClient(t, handler)

		repos, err := client.ListRepositories(context.Background(), "user-token", 9)

		require.NoError(t, err)
		assert.NotNil(t, repos)
		assert.Empty(t, repos)
	})

	t.Run("maps 401 to ErrUnauthorized", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"message": "Bad credentials"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.ListRepositories(context.Background(), "expired", 1)

		require.Error(t, err)
		assert.ErrorIs(t, err, custom_errors.ErrUnauthorized)
		assert.False(t, custom_errors.IsTransport(err))
	})

	t.Run("maps server errors to TransportError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.ListRepositories(context.Background(), "user-token", 1)

		require.Error(t, err)
		assert.True(t, custom_errors.IsTransport(err))
	})

	t.Run("rejects a non-positive page without a request", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.ListRepositories(context.Background(), "user-token", 0)

		var pageErr *custom_errors.ErrInvalidPage
		assert.ErrorAs(t, err, &pageErr)
		assert.Equal(t, int32(0), atomic.LoadInt32(&requestCount))
	})
}

func TestClient_CreateRepository(t *testing.T) {
	t.Run("creates a private repository with forking enabled by default", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/user/repos", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "new-repo", body["name"])
			assert.Equal(t, true, body["private"])
			assert.Equal(t, true, body["allow_forking"])
			assert.Equal(t, true, body["auto_init"])

			w.WriteHeader(http.StatusCreated)
			fmt.Fprintln(w, `{"id": 7, "name": "new-repo", "full_name": "me/new-repo", "private": true}`)
		})
		client, _ := setupTestClient(t, handler)

		repo, err := client.CreateRepository(context.Background(), "user-token", model.CreateRepositoryRequest{
			Name:       "new-repo",
			Visibility: "private",
			AutoInit:   true,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(7), repo.GetID())
	})

	t.Run("honors an explicit allowForking=false", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, false, body["private"])
			assert.Equal(t, false, body["allow_forking"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintln(w, `{"id": 8, "name": "open"}`)
		})
		client, _ := setupTestClient(t, handler)
		noFork := false

		_, err := client.CreateRepository(context.Background(), "user-token", model.CreateRepositoryRequest{
			Name:         "open",
			Visibility:   "public",
			AllowForking: &noFork,
		})

		require.NoError(t, err)
	})
}

func TestClient_ListLanguages(t *testing.T) {
	handler := http.NewServeMux()
	handler.HandleFunc("/repositories/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"id": 42, "name": "dash", "owner": {"login": "octo"}}`)
	})
	handler.HandleFunc("/repos/octo/dash/languages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"Go": 300, "CSS": 100}`)
	})
	client, _ := setupTestClient(t, handler)

	languages, err := client.ListLanguages(context.Background(), "user-token", 42)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Go": 300, "CSS": 100}, languages)
}

func TestClient_GetRepositoryByID_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, `{"message": "Not Found"}`)
	})
	client, _ := setupTestClient(t, handler)

	_, err := client.GetRepositoryByID(context.Background(), "user-token", 1)

	assert.ErrorIs(t, err, custom_errors.ErrNotFound)
}

func TestClient_OAuth(t *testing.T) {
	t.Run("builds the authorize url", func(t *testing.T) {
		client, server := setupTestClient(t, http.NotFoundHandler())

		u, err := url.Parse(client.AuthCodeURL())

		require.NoError(t, err)
		assert.Equal(t, server.URL+"/login/oauth/authorize", u.Scheme+"://"+u.Host+u.Path)
		assert.Equal(t, "client-id", u.Query().Get("client_id"))
		assert.Equal(t, "repo user", u.Query().Get("scope"))
	})

	t.Run("exchanges a code for an access token", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/login/oauth/access_token", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			form, err := url.ParseQuery(string(body))
			require.NoError(t, err)
			assert.Equal(t, "the-code", form.Get("code"))
			assert.Equal(t, "client-secret", form.Get("client_secret"))

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintln(w, `{"access_token": "gho_abc", "token_type": "bearer", "scope": "repo,user"}`)
		})
		client, _ := setupTestClient(t, handler)

		token, err := client.ExchangeCode(context.Background(), "the-code")

		require.NoError(t, err)
		assert.Equal(t, "gho_abc", token)
	})

	t.Run("fails when github returns no token", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintln(w, `{"error": "bad_verification_code"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.ExchangeCode(context.Background(), "stale")

		assert.Error(t, err)
	})
}
