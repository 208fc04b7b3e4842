package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpilot/internal/config"
	"hostpilot/internal/llm"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.OllamaConfig{Endpoint: "http://gpu:11434", Model: "qwen2.5", Timeout: time.Second})
	assert.Equal(t, "qwen2.5", c.Model())
	assert.Equal(t, "http://gpu:11434", c.endpoint)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "json", req.Format)
		require.NotNil(t, req.Options)
		assert.Zero(t, req.Options.Temperature)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(generateResponse{
			Model:     "test-model",
			CreatedAt: time.Now().Format(time.RFC3339),
			Response:  `{"text":"Memory is at 70.8%."}`,
			Done:      true,
		})
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL, Model: "test-model", Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), "rephrase", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Memory is at 70.8%."}`, string(out))
}

func TestClient_GenerateWithSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		format, ok := req.Format.(map[string]any)
		require.True(t, ok, "schema should be sent as the format object")
		assert.Equal(t, "object", format["type"])

		json.NewEncoder(w).Encode(generateResponse{Response: `{"steps":[]}`, Done: true})
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL})
	out, err := c.Generate(context.Background(), "plan", map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps":[]}`, string(out))
}

func TestClient_GenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"model not found", http.StatusNotFound, `{"error":"model 'nope' not found"}`, ErrModelNotFound},
		{"unavailable", http.StatusServiceUnavailable, ``, ErrConnectionFailed},
		{"garbage body", http.StatusOK, `not json`, ErrInvalidResponse},
		{"incomplete", http.StatusOK, `{"response":"{}","done":false}`, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(Config{Endpoint: server.URL})
			_, err := c.Generate(context.Background(), "x", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_ConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(Config{Endpoint: url})
	_, err := c.Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrConnectionFailed)
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	require.NoError(t, New(Config{Endpoint: server.URL}).Ping(context.Background()))
}

// Prose around the JSON passes the client untouched and is rejected by Strict.
func TestClient_StrictRejectsProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "Sure! {\"text\":\"hi\"}", Done: true})
	}))
	defer server.Close()

	g := llm.NewStrict(New(Config{Endpoint: server.URL}), time.Second)
	_, err := g.Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, llm.ErrNonJSON)
}
