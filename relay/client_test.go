package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	t.Run("sends prompt pair with bearer auth", func(t *testing.T) {
		var gotAuth string
		var gotBody completionRequest
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			assert.Equal(t, "/chat/completions", r.URL.Path)
			w.Write([]byte(`{"choices":[{"message":{"content":"hola"}}]}`))
		}))
		defer upstream.Close()

		c := NewClient(upstream.URL, "test-model", "sk-test")
		status, body, err := c.Complete(context.Background(), "translate to Spanish", "hello")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), "hola")
		assert.Equal(t, "Bearer sk-test", gotAuth)
		assert.Equal(t, "test-model", gotBody.Model)
		require.Len(t, gotBody.Messages, 2)
		assert.Equal(t, "system", gotBody.Messages[0].Role)
		assert.Equal(t, "translate to Spanish", gotBody.Messages[0].Content)
		assert.Equal(t, "user", gotBody.Messages[1].Role)
	})

	t.Run("passes upstream error status and body through", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited"}}`))
		}))
		defer upstream.Close()

		c := NewClient(upstream.URL, "test-model", "sk-test")
		status, body, err := c.Complete(context.Background(), "sys", "usr")

		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, status)
		assert.Contains(t, string(body), "rate limited")
	})

	t.Run("reports transport failure as an error", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "test-model", "sk-test")
		_, _, err := c.Complete(context.Background(), "sys", "usr")
		assert.Error(t, err)
	})
}

func TestClient_Configured(t *testing.T) {
	assert.False(t, NewClient("http://x", "m", "").Configured())
	assert.True(t, NewClient("http://x", "m", "k").Configured())
}
