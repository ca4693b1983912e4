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

func newHFServer(t *testing.T, generated string) (*httptest.Server, *[]hfRequest) {
	t.Helper()
	var received []hfRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models/t5-small", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t5-small","pipeline_tag":"translation"}`))
	})
	mux.HandleFunc("GET /api/models/google/flan-t5-small", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"google/flan-t5-small","pipeline_tag":"text2text-generation"}`))
	})
	mux.HandleFunc("GET /api/models/does-not-exist", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Repository not found"}`, http.StatusUnauthorized)
	})
	mux.HandleFunc("POST /models/t5-small", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
		var req hfRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = append(received, req)
		_ = json.NewEncoder(w).Encode([]hfGenerated{{GeneratedText: generated}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &received
}

func newTestHF(srvURL, model string) *HuggingFaceProvider {
	p := NewHuggingFaceProvider("hf_token", model, nil)
	cfg := config.NewConfig()
	config.ApplyOptions(cfg, config.SetHFEndpoints(srvURL, srvURL+"/"))
	p.SetDefaultOptions(cfg)
	return p
}

func TestHuggingFaceLoadAndGenerate(t *testing.T) {
	srv, received := newHFServer(t, `job_type: remote, skills: React, Node.js`)
	p := newTestHF(srv.URL, "t5-small")

	_, err := p.Generate(context.Background(), &Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, p.Load(context.Background()))
	resp, err := p.Generate(context.Background(), &Request{Prompt: "Extract this", MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, "job_type: remote, skills: React, Node.js", resp.String())

	require.Len(t, *received, 1)
	got := (*received)[0]
	assert.Equal(t, "Extract this", got.Inputs)
	assert.Equal(t, 512, got.Parameters.MaxLength)
	assert.False(t, got.Parameters.DoSample)
	assert.True(t, got.Options.WaitForModel)

	require.NoError(t, p.Close())
	_, err = p.Generate(context.Background(), &Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestHuggingFaceModelWithNamespace(t *testing.T) {
	srv, _ := newHFServer(t, "")
	p := newTestHF(srv.URL, "google/flan-t5-small")
	assert.NoError(t, p.Load(context.Background()))
}

func TestHuggingFaceUnknownModel(t *testing.T) {
	srv, _ := newHFServer(t, "")

	err := newTestHF(srv.URL, "does-not-exist").Load(context.Background())
	assert.ErrorIs(t, err, ErrModelNotFound)

	err = newTestHF(srv.URL, "").Load(context.Background())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestParseHFResponse(t *testing.T) {
	text, err := parseHFResponse([]byte(`[{"generated_text":"a"},{"generated_text":"b"}]`))
	require.NoError(t, err)
	assert.Equal(t, "a", text)

	text, err = parseHFResponse([]byte(`{"generated_text":"single"}`))
	require.NoError(t, err)
	assert.Equal(t, "single", text)

	_, err = parseHFResponse([]byte(`[]`))
	assert.Error(t, err)

	_, err = parseHFResponse([]byte(`{"error":"Model is overloaded"}`))
	assert.ErrorContains(t, err, "overloaded")

	_, err = parseHFResponse([]byte(`not json`))
	assert.Error(t, err)
}

func TestHuggingFaceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"id":"t5-small"}`))
			return
		}
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestHF(srv.URL, "t5-small")
	require.NoError(t, p.Load(context.Background()))

	_, err := p.Generate(context.Background(), &Request{Prompt: "x", MaxTokens: 8})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "out of memory")
}
