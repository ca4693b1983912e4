package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/utils"
)

const DefaultOllamaEndpoint = "http://localhost:11434"

// OllamaProvider runs locally hosted models through Ollama's HTTP API.
// Ollama takes a JSON schema in its "format" field, so structured responses
// are supported.
type OllamaProvider struct {
	httpBackend
	model    string
	endpoint string
	loaded   atomic.Bool
}

// NewOllamaProvider creates a new Ollama provider instance. Ollama does not
// use API keys, so apiKey is ignored.
func NewOllamaProvider(_ string, model string, extraHeaders map[string]string) *OllamaProvider {
	return &OllamaProvider{
		httpBackend: newHTTPBackend("ollama", extraHeaders),
		model:       model,
		endpoint:    DefaultOllamaEndpoint,
	}
}

func (p *OllamaProvider) Name() string  { return "ollama" }
func (p *OllamaProvider) Model() string { return p.model }

func (p *OllamaProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *OllamaProvider) SupportsStructuredResponse() bool { return true }

func (p *OllamaProvider) SetDefaultOptions(cfg *config.Config) {
	if cfg.OllamaEndpoint != "" {
		p.endpoint = trimEndpoint(cfg.OllamaEndpoint)
	}
	p.setTimeout(cfg.Timeout)
}

// Load asks Ollama for the model's metadata. A model that has not been
// pulled answers 404.
func (p *OllamaProvider) Load(ctx context.Context) error {
	if p.model == "" {
		return fmt.Errorf("%w: empty model identifier", ErrModelNotFound)
	}
	_, err := p.do(ctx, http.MethodPost, p.endpoint+"/api/show", nil, map[string]string{"model": p.model})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrModelNotFound, p.model)
		}
		return err
	}
	p.loaded.Store(true)
	p.logger.Debug("Model loaded", "provider", p.Name(), "model", p.model)
	return nil
}

type ollamaRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  json.RawMessage `json:"format,omitempty"`
	Options ollamaOptions   `json:"options"`
}

// ollamaOptions pins decoding to the most likely token at every step.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	Seed        int     `json:"seed"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
}

func (p *OllamaProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if !p.loaded.Load() {
		return nil, ErrNotLoaded
	}
	payload := ollamaRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0,
			TopK:        1,
			Seed:        req.Seed,
			NumPredict:  req.MaxTokens,
		},
	}
	if len(req.Schema) > 0 {
		payload.Format = json.RawMessage(req.Schema)
	}

	body, err := p.do(ctx, http.MethodPost, p.endpoint+"/api/generate", nil, payload)
	if err != nil {
		return nil, err
	}

	var res ollamaResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("error parsing Ollama response: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", res.Error)
	}

	resp := &Response{Text: res.Response}
	if res.PromptEvalCount > 0 || res.EvalCount > 0 {
		resp.Usage = NewUsage(res.PromptEvalCount, res.EvalCount)
	}
	return resp, nil
}

func (p *OllamaProvider) Close() error {
	p.loaded.Store(false)
	p.close()
	return nil
}
