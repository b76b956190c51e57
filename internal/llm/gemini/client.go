// Package gemini backs the generation client with the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"tailor-backend/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

// Client calls the Gemini API and maps its failures onto the generation
// error taxonomy.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: model}, nil
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.model }

// Generate sends the prompt and returns the concatenated text parts of the
// response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &llm.GenerationError{Msg: "empty prompt"}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", mapError(err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", llm.ErrEmptyOutput
	}
	return out, nil
}

// mapError folds API and transport failures into the typed generation
// errors. Unknown upstream codes fall through as fatal GenerationErrors.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", llm.ErrRateLimited, apiErr.Message)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", llm.ErrTransientUnavailable, apiErr.Message)
		default:
			return &llm.GenerationError{Msg: fmt.Sprintf("api error %d %s", apiErr.Code, apiErr.Status), Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	// Some failures surface as plain errors with no structured code.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"), strings.Contains(msg, "resource_exhausted"):
		return fmt.Errorf("%w: %s", llm.ErrRateLimited, err.Error())
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "overloaded"), strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %s", llm.ErrTransientUnavailable, err.Error())
	}
	return &llm.GenerationError{Msg: "generate content", Err: err}
}

var _ llm.Client = (*Client)(nil)
