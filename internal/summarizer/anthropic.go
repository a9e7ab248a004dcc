package summarizer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var tooLargeMarkers = []string{"request_too_large", "100 PDF pages", "prompt is too long"}

// AnthropicProvider implements the Provider interface using Anthropic's Claude API.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider. SDK retries are
// disabled; callers retry rate limits themselves.
func NewAnthropicProvider(apiKey string, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{client: &client}
}

// Summarize sends req and returns the first text block of the reply.
func (p *AnthropicProvider) Summarize(ctx context.Context, req Request) (*Response, error) {
	var blocks []anthropic.ContentBlockParamUnion

	switch {
	case len(req.PDF) > 0:
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(req.PDF),
		}))
	case req.Document != "":
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.PlainTextSourceParam{
			Data: req.Document,
		}))
	}

	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	// Extract text from response
	var text string

	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text

			break
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Text:         text,
		Model:        string(message.Model),
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, nil
}

// classifyError maps API failures onto the package's sentinel errors.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to call Claude API: %w", err)
	}

	msg := apiErr.Error()

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests || strings.Contains(msg, "rate_limit_error"):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case apiErr.StatusCode == http.StatusRequestEntityTooLarge || containsAny(msg, tooLargeMarkers):
		return fmt.Errorf("%w: %w", ErrTooLarge, err)
	default:
		return fmt.Errorf("failed to call Claude API: %w", err)
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}

	return false
}
