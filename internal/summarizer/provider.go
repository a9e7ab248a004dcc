// Package summarizer produces AI summaries of agenda attachments and meeting videos.
package summarizer

import (
	"context"
	"errors"
)

// Provider errors.
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrTooLarge      = errors.New("document too large for the model")
	ErrEmptyResponse = errors.New("empty response")
)

// Haiku pricing in USD per million tokens.
const (
	InputPricePerMillion  = 1.00
	OutputPricePerMillion = 5.00
)

// Request is one summarization call. At most one of PDF and Document is set.
type Request struct {
	Temperature *float64
	Model       string
	System      string
	Prompt      string
	Document    string
	PDF         []byte
	MaxTokens   int
}

// Response is the model's answer and its token usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Cost returns the price of the call at Haiku rates.
func (r *Response) Cost() float64 {
	return float64(r.InputTokens)/1_000_000*InputPricePerMillion +
		float64(r.OutputTokens)/1_000_000*OutputPricePerMillion
}

// Provider sends summarization requests to a model.
type Provider interface {
	Summarize(ctx context.Context, req Request) (*Response, error)
}
