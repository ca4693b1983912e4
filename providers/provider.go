// Package providers implements the model backends a Summarizer loads and
// generates with. Every backend decodes greedily: repeated calls with the same
// prompt against the same model version return the same text.
package providers

import (
	"context"
	"errors"

	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/utils"
)

// ErrModelNotFound is wrapped by Load when the backend does not know the model.
var ErrModelNotFound = errors.New("model not found")

// ErrNotLoaded is returned by Generate before Load succeeded or after Close.
var ErrNotLoaded = errors.New("model not loaded")

// Provider is a handle on one named model behind one backend.
type Provider interface {
	Name() string
	Model() string
	SetDefaultOptions(cfg *config.Config)
	SetLogger(logger utils.Logger)

	// Load resolves the model identifier and readies the backend. It is
	// expensive and meant to run once per handle.
	Load(ctx context.Context) error
	Generate(ctx context.Context, req *Request) (*Response, error)
	Close() error

	SupportsStructuredResponse() bool
}

// ProviderConstructor defines a function type for creating new provider instances.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider

// Request is one generation call.
type Request struct {
	Prompt    string
	MaxTokens int
	Seed      int
	// Schema, when set, is a JSON schema the output should follow. Backends
	// without structured output support ignore it.
	Schema []byte
}
