package jobsum

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one description in a batch.
type BatchResult struct {
	Index       int
	Description string
	Text        string
	Err         error
}

// SummarizeBatch summarizes descriptions with up to Config.Workers concurrent
// calls sharing the same handle. Results are in input order and each carries
// its own error. The returned error is only set when ctx ends first.
func (s *Summarizer) SummarizeBatch(ctx context.Context, descriptions []string, opts ...GenerateOption) ([]BatchResult, error) {
	results := make([]BatchResult, len(descriptions))

	var g errgroup.Group
	g.SetLimit(max(1, s.config.Workers))
	for i, description := range descriptions {
		g.Go(func() error {
			text, err := s.Summarize(ctx, description, opts...)
			results[i] = BatchResult{Index: i, Description: description, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("Batch complete", "total", len(results), "failed", failed, "workers", s.config.Workers)
	return results, ctx.Err()
}
