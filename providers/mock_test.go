package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	p := NewMockProvider("", "mock-model", nil)

	assert.Equal(t, "mock", p.Name())
	assert.Equal(t, "mock-model", p.Model())

	_, err := p.Generate(ctx, &Request{Prompt: "early"})
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, p.Load(ctx))
	assert.True(t, p.Loaded())

	resp, err := p.Generate(ctx, &Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "This is a mock response", resp.Text)

	p.SetMockResponse("custom mock response")
	resp, err = p.Generate(ctx, &Request{Prompt: "p", MaxTokens: 4})
	require.NoError(t, err)
	assert.Equal(t, "custom mock response", resp.Text)

	p.SetGenerateError(errors.New("mock error"))
	_, err = p.Generate(ctx, &Request{Prompt: "p"})
	assert.EqualError(t, err, "mock error")

	assert.Len(t, p.Requests(), 3)
	assert.Equal(t, 4, p.Requests()[1].MaxTokens)

	require.NoError(t, p.Close())
	assert.False(t, p.Loaded())
}

func TestMockProviderResponses(t *testing.T) {
	ctx := context.Background()
	p := NewMockProvider("", "mock-model", nil)
	require.NoError(t, p.Load(ctx))

	responses := []string{"First response", "Second response", "Third response"}
	p.SetResponses(responses, false)
	for _, expected := range responses {
		resp, err := p.Generate(ctx, &Request{})
		require.NoError(t, err)
		assert.Equal(t, expected, resp.Text)
	}
	_, err := p.Generate(ctx, &Request{})
	assert.ErrorContains(t, err, "exhausted")

	p.SetResponses(responses, true)
	for i := 0; i < len(responses)*2; i++ {
		resp, err := p.Generate(ctx, &Request{})
		require.NoError(t, err)
		assert.Equal(t, responses[i%len(responses)], resp.Text)
	}
}

func TestMockProviderResponderAndLoadError(t *testing.T) {
	ctx := context.Background()
	p := NewMockProvider("", "mock-model", nil)

	p.SetLoadError(ErrModelNotFound)
	assert.ErrorIs(t, p.Load(ctx), ErrModelNotFound)
	assert.False(t, p.Loaded())
	assert.Equal(t, 1, p.LoadCalls())

	p.SetLoadError(nil)
	require.NoError(t, p.Load(ctx))
	p.SetResponder(func(req *Request) (string, error) { return "echo: " + req.Prompt, nil })
	resp, err := p.Generate(ctx, &Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", resp.Text)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Generate(cancelled, &Request{Prompt: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
}
