// Package jobsum turns free-text job descriptions into the raw output of a
// pretrained text-to-text model asked for structured job details.
//
// A Summarizer owns one loaded model handle. Decoding is greedy, so repeated
// calls with the same description against the same model return the same
// text. The handle is read-only after load and may be shared by concurrent
// callers; Close releases it.
//
//	s, err := jobsum.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	out, err := s.Summarize(ctx, "We are looking for a remote Go developer...")
package jobsum

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/llm"
	"github.com/teilomillet/jobsum/providers"
	"github.com/teilomillet/jobsum/utils"
)

// ErrClosed is wrapped by the GenerationError returned after Close.
var ErrClosed = errors.New("summarizer is closed")

// Summarizer builds the job details prompt and runs it through a loaded model.
type Summarizer struct {
	mu       sync.RWMutex
	closed   bool
	provider providers.Provider
	config   *config.Config
	logger   utils.Logger
	prompt   *llm.PromptTemplate
	counter  llm.TokenCounter
	limiter  *rate.Limiter
}

// GenerateOption is a function type for configuring a single Summarize call
type GenerateOption func(*generateConfig)

type generateConfig struct {
	schema []byte
}

// WithSchema asks backends that support structured responses to constrain
// their output to the JSON schema. Other backends ignore it.
func WithSchema(schema []byte) GenerateOption {
	return func(c *generateConfig) {
		c.schema = schema
	}
}

// New loads configuration from the environment, applies opts and loads the
// configured model. If the model cannot be resolved or loaded the error is a
// LoadError and no Summarizer is returned.
func New(ctx context.Context, opts ...ConfigOption) (*Summarizer, error) {
	cfg, err := LoadConfig("")
	if err != nil {
		return nil, llm.NewLLMError(llm.ErrorTypeConfig, "failed to load config", err)
	}
	ApplyOptions(cfg, opts...)
	return NewFromConfig(ctx, cfg, providers.NewProviderRegistry())
}

// NewFromConfig loads cfg.Model with the backend registry resolves for
// cfg.Provider.
func NewFromConfig(ctx context.Context, cfg *config.Config, registry *providers.ProviderRegistry) (*Summarizer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewLogger(cfg.LogLevel)
	}

	if err := llm.Validate(cfg); err != nil {
		logger.Error("Invalid configuration", "errors", llm.ValidationMessages(err))
		return nil, llm.NewLLMError(llm.ErrorTypeConfig, "invalid configuration", err)
	}

	provider, err := registry.Get(cfg.Provider, cfg.APIKey(), cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		loadErr := llm.NewLoadError("failed to resolve provider", err).WithProvider(cfg.Provider)
		logger.Error("Failed to resolve provider", loadErr.LoggableFields()...)
		return nil, loadErr
	}
	provider.SetLogger(logger)
	provider.SetDefaultOptions(cfg)

	logger.Debug("Loading model", "provider", provider.Name(), "model", cfg.Model)
	if err := provider.Load(ctx); err != nil {
		loadErr := llm.NewLoadError("failed to load model "+cfg.Model, err).WithProvider(provider.Name())
		logger.Error("Failed to load model", loadErr.LoggableFields()...)
		return nil, loadErr
	}

	encCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	s := &Summarizer{
		provider: provider,
		config:   cfg,
		logger:   logger,
		prompt:   llm.NewJobDetailsPrompt(),
		counter:  llm.NewTokenCounter(encCtx, cfg.TokenEncoding, logger),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	logger.Info("Model loaded", "provider", provider.Name(), "model", cfg.Model, "max_tokens", cfg.MaxTokens)
	return s, nil
}

// Summarize prompts the model for the job details of description and returns
// the generated text unchanged, apart from truncation to the configured token
// bound. An empty description is a valid input. Backend failures are
// GenerationErrors and are not retried.
func (s *Summarizer) Summarize(ctx context.Context, description string, opts ...GenerateOption) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", llm.NewGenerationError("cannot generate", ErrClosed).WithProvider(s.provider.Name())
	}

	gc := &generateConfig{}
	for _, opt := range opts {
		opt(gc)
	}

	prompt, err := s.prompt.Execute(map[string]any{"Description": description})
	if err != nil {
		return "", llm.NewInvalidInputError("failed to build prompt", err).WithProvider(s.provider.Name())
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", llm.NewGenerationError("rate limiter", err).WithProvider(s.provider.Name())
		}
	}

	req := &providers.Request{
		Prompt:    prompt,
		MaxTokens: s.config.MaxTokens,
		Seed:      s.config.Seed,
	}
	if len(gc.schema) > 0 && s.provider.SupportsStructuredResponse() {
		req.Schema = gc.schema
	}

	s.logger.Debug("Generating", "provider", s.provider.Name(), "model", s.provider.Model(), "prompt", prompt)
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		genErr := llm.NewGenerationError("generation failed", err).WithProvider(s.provider.Name())
		s.logger.Error("Generation failed", genErr.LoggableFields()...)
		return "", genErr
	}

	text := resp.Text
	if n := s.counter.Count(text); n > s.config.MaxTokens {
		s.logger.Warn("Output exceeds token bound, truncating", "tokens", n, "max_tokens", s.config.MaxTokens)
		text = s.counter.Truncate(text, s.config.MaxTokens)
	}
	if resp.Usage != nil {
		s.logger.Debug("Token usage", "input", resp.Usage.InputTokens, "output", resp.Usage.OutputTokens)
	}
	return text, nil
}

// SupportsStructuredResponse reports whether WithSchema has any effect.
func (s *Summarizer) SupportsStructuredResponse() bool {
	return s.provider.SupportsStructuredResponse()
}

// StructuredOutput reports whether the configuration asks for schema
// constrained output when the backend supports it.
func (s *Summarizer) StructuredOutput() bool {
	return s.config.StructuredOutput
}

// Provider returns the backend name, such as "huggingface".
func (s *Summarizer) Provider() string { return s.provider.Name() }

// Model returns the loaded model identifier.
func (s *Summarizer) Model() string { return s.provider.Model() }

// Close releases the model handle. It waits for in-flight calls and is safe
// to call more than once.
func (s *Summarizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("Releasing model", "provider", s.provider.Name(), "model", s.provider.Model())
	return s.provider.Close()
}
