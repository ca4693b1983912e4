package jobsum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/jobsum/llm"
	"github.com/teilomillet/jobsum/providers"
)

func echoDescription(req *providers.Request) (string, error) {
	_, description, _ := strings.Cut(req.Prompt, "Description: ")
	if description == "fail" {
		return "", errors.New("refused")
	}
	return "summary of " + description, nil
}

func TestSummarizeBatchKeepsOrder(t *testing.T) {
	mock := providers.NewMockProvider("", "fixture-model", nil)
	mock.SetResponder(echoDescription)
	s := newTestSummarizer(t, mock, SetWorkers(4))

	descriptions := make([]string, 20)
	for i := range descriptions {
		descriptions[i] = fmt.Sprintf("job %d", i)
	}

	results, err := s.SummarizeBatch(context.Background(), descriptions)
	require.NoError(t, err)
	require.Len(t, results, len(descriptions))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, descriptions[i], r.Description)
		assert.Equal(t, "summary of "+descriptions[i], r.Text)
		assert.NoError(t, r.Err)
	}
	assert.Len(t, mock.Requests(), len(descriptions))
}

func TestSummarizeBatchPerItemErrors(t *testing.T) {
	mock := providers.NewMockProvider("", "fixture-model", nil)
	mock.SetResponder(echoDescription)
	s := newTestSummarizer(t, mock, SetWorkers(2))

	results, err := s.SummarizeBatch(context.Background(), []string{"a", "fail", "c"})
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.True(t, llm.IsGenerationError(results[1].Err))
	assert.Equal(t, "summary of c", results[2].Text)
}

func TestSummarizeBatchBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	mock := providers.NewMockProvider("", "fixture-model", nil)
	s := newTestSummarizer(t, mock, SetWorkers(3))

	// MockProvider serializes Generate, so count around Summarize instead.
	results := make(chan int32, 12)
	descriptions := make([]string, 12)
	_, err := s.SummarizeBatch(context.Background(), descriptions, func(*generateConfig) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		results <- n
		inFlight.Add(-1)
	})
	require.NoError(t, err)
	close(results)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Len(t, results, 12)
}

func TestSummarizeBatchRateLimited(t *testing.T) {
	mock := providers.NewMockProvider("", "fixture-model", nil)
	s := newTestSummarizer(t, mock, SetWorkers(4), SetRateLimit(50))

	start := time.Now()
	results, err := s.SummarizeBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	// Burst of one, then 50 per second: four waits of 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestSummarizeBatchCancelled(t *testing.T) {
	mock := providers.NewMockProvider("", "fixture-model", nil)
	s := newTestSummarizer(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := s.SummarizeBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}
