package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/jobsum/config"
)

func newOllamaServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var received []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/show", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["model"] != "llama3.2" {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"details":{"family":"llama"}}`))
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = append(received, body)
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"{\"job_type\":\"remote\"}","done":true,"prompt_eval_count":12,"eval_count":7}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &received
}

func newTestOllama(endpoint, model string) *OllamaProvider {
	p := NewOllamaProvider("", model, nil)
	cfg := config.NewConfig()
	config.ApplyOptions(cfg, config.SetOllamaEndpoint(endpoint))
	p.SetDefaultOptions(cfg)
	return p
}

func TestOllamaGenerateIsGreedy(t *testing.T) {
	srv, received := newOllamaServer(t)
	p := newTestOllama(srv.URL, "llama3.2")

	require.NoError(t, p.Load(context.Background()))
	resp, err := p.Generate(context.Background(), &Request{Prompt: "hello", MaxTokens: 512, Seed: 3})
	require.NoError(t, err)

	assert.Equal(t, `{"job_type":"remote"}`, resp.Text)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(19), resp.Usage.TotalTokens)

	require.Len(t, *received, 1)
	body := (*received)[0]
	assert.Equal(t, "llama3.2", body["model"])
	assert.Equal(t, "hello", body["prompt"])
	assert.Equal(t, false, body["stream"])
	assert.NotContains(t, body, "format")

	options, ok := body["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), options["temperature"])
	assert.Equal(t, float64(1), options["top_k"])
	assert.Equal(t, float64(3), options["seed"])
	assert.Equal(t, float64(512), options["num_predict"])
}

func TestOllamaStructuredFormat(t *testing.T) {
	srv, received := newOllamaServer(t)
	p := newTestOllama(srv.URL, "llama3.2")
	require.True(t, p.SupportsStructuredResponse())
	require.NoError(t, p.Load(context.Background()))

	schema := []byte(`{"type":"object","properties":{"job_type":{"type":"string"}}}`)
	_, err := p.Generate(context.Background(), &Request{Prompt: "p", MaxTokens: 16, Schema: schema})
	require.NoError(t, err)

	format, ok := (*received)[0]["format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", format["type"])
}

func TestOllamaUnknownModel(t *testing.T) {
	srv, _ := newOllamaServer(t)

	err := newTestOllama(srv.URL, "nope").Load(context.Background())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestOllama(url, "llama3.2").Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}
