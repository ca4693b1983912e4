package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/utils"
)

// OpenAIProvider talks to OpenAI or any server exposing the same chat
// completions API (vLLM, LM Studio, llama.cpp server). Greedy decoding is
// requested with temperature 0 and a fixed seed.
type OpenAIProvider struct {
	apiKey       string
	model        string
	baseURL      string
	timeout      time.Duration
	extraHeaders map[string]string
	client       openai.Client
	logger       utils.Logger
	loaded       atomic.Bool
}

func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) *OpenAIProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		model:        model,
		timeout:      2 * time.Minute,
		extraHeaders: extraHeaders,
		logger:       utils.NewLogger(utils.LogLevelWarn),
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *OpenAIProvider) SupportsStructuredResponse() bool { return true }

func (p *OpenAIProvider) SetDefaultOptions(cfg *config.Config) {
	if cfg.OpenAIBaseURL != "" {
		p.baseURL = cfg.OpenAIBaseURL
	}
	if cfg.Timeout > 0 {
		p.timeout = cfg.Timeout
	}
}

func (p *OpenAIProvider) newClient() openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: p.timeout}),
	}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	for k, v := range p.extraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	return openai.NewClient(opts...)
}

// Load retrieves the model from the models endpoint.
func (p *OpenAIProvider) Load(ctx context.Context) error {
	if p.model == "" {
		return fmt.Errorf("%w: empty model identifier", ErrModelNotFound)
	}
	p.client = p.newClient()
	if _, err := p.client.Models.Get(ctx, p.model); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrModelNotFound, p.model)
		}
		return fmt.Errorf("retrieve model: %w", err)
	}
	p.loaded.Store(true)
	p.logger.Debug("Model loaded", "provider", p.Name(), "model", p.model)
	return nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if !p.loaded.Load() {
		return nil, ErrNotLoaded
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature:         openai.Float(0),
		Seed:                openai.Int(int64(req.Seed)),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}
	if len(req.Schema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(req.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid response schema: %w", err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "job_details",
					Schema: schema,
				},
			},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return &Response{
		Text:  completion.Choices[0].Message.Content,
		Usage: NewUsage(completion.Usage.PromptTokens, completion.Usage.CompletionTokens),
	}, nil
}

func (p *OpenAIProvider) Close() error {
	p.loaded.Store(false)
	return nil
}
