package llm

import (
	"context"
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/jobsum/utils"
)

// TokenCounter measures and bounds generated text.
type TokenCounter interface {
	Count(text string) int
	// Truncate returns the longest prefix of text holding at most limit tokens.
	Truncate(text string, limit int) string
}

// NewTokenCounter returns a tiktoken counter for encoding, or a whitespace
// word counter when encoding is empty, "none", or cannot be loaded before ctx
// is done. tiktoken downloads the encoding on first use and caches it under
// TIKTOKEN_CACHE_DIR when that is set.
func NewTokenCounter(ctx context.Context, encoding string, logger utils.Logger) TokenCounter {
	if encoding == "" || encoding == "none" {
		return WordCounter{}
	}

	type loaded struct {
		enc *tiktoken.Tiktoken
		err error
	}
	done := make(chan loaded, 1)
	go func() {
		enc, err := tiktoken.GetEncoding(encoding)
		done <- loaded{enc: enc, err: err}
	}()

	select {
	case l := <-done:
		if l.err != nil {
			logger.Warn("Failed to load token encoding, falling back to word counting", "encoding", encoding, "error", l.err)
			return WordCounter{}
		}
		return &tiktokenCounter{enc: l.enc}
	case <-ctx.Done():
		logger.Warn("Token encoding not loaded in time, falling back to word counting", "encoding", encoding, "error", ctx.Err())
		return WordCounter{}
	}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *tiktokenCounter) Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return strings.ToValidUTF8(c.enc.Decode(tokens[:limit]), "")
}

// WordCounter counts whitespace separated words. Words never split across a
// model token, so a word bound is never tighter than the model's own.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func (WordCounter) Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	words := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			if words == limit {
				return strings.TrimRightFunc(text[:i], unicode.IsSpace)
			}
			words++
			inWord = true
		}
	}
	return text
}
