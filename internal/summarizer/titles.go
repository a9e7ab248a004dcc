package summarizer

import (
	"context"
	"strings"
)

const (
	titleMaxTokens   = 50
	titleTemperature = 0.3
)

// TitleWriter asks the model for short section titles.
type TitleWriter struct {
	provider Provider
	model    string
	retrier  *Retrier
}

// NewTitleWriter creates a title writer using model.
func NewTitleWriter(provider Provider, model string, retrier *Retrier) *TitleWriter {
	return &TitleWriter{provider: provider, model: model, retrier: retrier}
}

// ImproveTitle returns a 2-5 word title for a section.
func (w *TitleWriter) ImproveTitle(ctx context.Context, title string, itemTitles []string) (string, error) {
	temperature := titleTemperature

	call := func() (*Response, error) {
		return w.provider.Summarize(ctx, Request{
			Model:       w.model,
			MaxTokens:   titleMaxTokens,
			Prompt:      TitlePrompt(title, itemTitles),
			Temperature: &temperature,
		})
	}

	var (
		resp *Response
		err  error
	)

	if w.retrier != nil {
		resp, _, err = w.retrier.Do(ctx, call)
	} else {
		resp, err = call()
	}

	if err != nil {
		return "", err
	}

	return cleanTitle(resp.Text), nil
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = strings.TrimSpace(line)
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimRight(s, ".:;")
}
