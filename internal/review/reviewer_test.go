package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github-repo-dashboard/internal/errors"
)

const completion = `{
	"id": "chatcmpl-1", "object": "chat.completion", "model": "test-model",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "## Review\nLooks good."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func setupReviewer(t *testing.T, handler http.Handler) *Reviewer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewReviewer(Config{
		APIKey:       "sk-test",
		BaseURL:      server.URL + "/v1",
		Model:        "test-model",
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
	}, logger)
}

func TestReviewer_Review(t *testing.T) {
	t.Run("sends the snippet and returns the markdown", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body struct {
				Model    string `json:"model"`
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test-model", body.Model)
			require.Len(t, body.Messages, 2)
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "func main() {}", body.Messages[1].Content)

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completion)
		})
		reviewer := setupReviewer(t, handler)

		review, err := reviewer.Review(context.Background(), "func main() {}")

		require.NoError(t, err)
		assert.Equal(t, "## Review\nLooks good.", review)
	})

	t.Run("retries on 503 and succeeds", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requestCount, 1) == 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completion)
		})
		reviewer := setupReviewer(t, handler)

		_, err := reviewer.Review(context.Background(), "x := 1")

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
	})

	t.Run("does not retry a bad request", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"message": "bad model", "type": "invalid_request_error"}}`)
		})
		reviewer := setupReviewer(t, handler)

		_, err := reviewer.Review(context.Background(), "x := 1")

		require.Error(t, err)
		assert.True(t, custom_errors.IsTransport(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})

	t.Run("rejects an empty snippet without calling the model", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
		})
		reviewer := setupReviewer(t, handler)

		_, err := reviewer.Review(context.Background(), "   ")

		var vErr *custom_errors.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Zero(t, atomic.LoadInt32(&requestCount))
	})
}

func TestNewReviewer_DisabledWithoutKey(t *testing.T) {
	reviewer := NewReviewer(Config{}, slog.Default())

	_, err := reviewer.Review(context.Background(), "code")

	assert.Nil(t, reviewer)
	assert.ErrorIs(t, err, custom_errors.ErrReviewerDisabled)
}
