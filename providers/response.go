package providers

// Response is the first (and only) candidate a backend produced.
type Response struct {
	Text  string
	Usage *Usage
}

func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return r.Text
}

// Usage is the token accounting reported by the backend, when it has one.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func NewUsage(inputTokens, outputTokens int64) *Usage {
	return &Usage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
	}
}
