package providers

import (
	"context"
	"errors"
	"sync"

	"github.com/teilomillet/jobsum/config"
	"github.com/teilomillet/jobsum/utils"
)

// MockProvider is an in-process backend for tests and offline runs. Its
// output depends only on its configuration and the request, so it is as
// deterministic as a greedy model.
type MockProvider struct {
	mu           sync.Mutex
	model        string
	logger       utils.Logger
	responseText string
	responses    []string
	currentIndex int
	loop         bool
	responder    func(*Request) (string, error)
	loadErr      error
	generateErr  error
	structured   bool
	requests     []Request
	loaded       bool
	loadCalls    int
}

func NewMockProvider(_ string, model string, _ map[string]string) *MockProvider {
	return &MockProvider{
		model:        model,
		logger:       utils.NewNopLogger(),
		responseText: "This is a mock response",
	}
}

func (p *MockProvider) Name() string                         { return "mock" }
func (p *MockProvider) Model() string                        { return p.model }
func (p *MockProvider) SetLogger(logger utils.Logger)        { p.logger = logger }
func (p *MockProvider) SetDefaultOptions(_ *config.Config)   {}
func (p *MockProvider) SupportsStructuredResponse() bool     { return p.structured }
func (p *MockProvider) SetStructuredResponse(supported bool) { p.structured = supported }

// SetMockResponse configures the text returned when no queue or responder is set.
func (p *MockProvider) SetMockResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseText = response
}

// SetResponses queues responses returned in order. Without loop, Generate
// fails once the queue is exhausted.
func (p *MockProvider) SetResponses(responses []string, loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
	p.currentIndex = 0
	p.loop = loop
}

// SetResponder computes each response from the request.
func (p *MockProvider) SetResponder(fn func(*Request) (string, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responder = fn
}

func (p *MockProvider) SetLoadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadErr = err
}

func (p *MockProvider) SetGenerateError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generateErr = err
}

func (p *MockProvider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.loadErr != nil {
		return p.loadErr
	}
	p.loaded = true
	return nil
}

func (p *MockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return nil, ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.requests = append(p.requests, *req)
	if p.generateErr != nil {
		return nil, p.generateErr
	}
	text, err := p.next(req)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Mock response", "model", p.model, "text", text)
	return &Response{Text: text}, nil
}

func (p *MockProvider) next(req *Request) (string, error) {
	if p.responder != nil {
		return p.responder(req)
	}
	if len(p.responses) == 0 {
		return p.responseText, nil
	}
	if p.currentIndex >= len(p.responses) {
		if !p.loop {
			return "", errors.New("mock responses exhausted")
		}
		p.currentIndex = 0
	}
	text := p.responses[p.currentIndex]
	p.currentIndex++
	return text, nil
}

// Requests returns a copy of every request Generate received.
func (p *MockProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

func (p *MockProvider) LoadCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadCalls
}

func (p *MockProvider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	return nil
}
