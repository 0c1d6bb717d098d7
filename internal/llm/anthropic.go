// Package llm wraps the external text-generation provider. It is the only
// package that talks to the Anthropic API and it classifies every failure
// before handing it back to the HTTP layer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"careplan-server/internal/config"
)

// ErrAuthentication marks credential rejection by the model provider.
// It deliberately carries no upstream detail so the configured key can
// never leak into a response.
var ErrAuthentication = errors.New("model provider rejected the configured credentials")

// GenerationError classifies a non-auth upstream failure (rate limits,
// server errors, transport faults). The message carries the upstream
// description for operator diagnosis.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator is the capability handlers depend on: given a prompt, return
// the generated text. Tests substitute a fake; production wires
// AnthropicClient.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnthropicClient calls the Anthropic messages API. It is constructed once
// at startup, never mutated afterwards, and safe for concurrent use.
type AnthropicClient struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// NewAnthropicClient builds the provider client from configuration.
func NewAnthropicClient(cfg *config.Config) *AnthropicClient {
	return &AnthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:       anthropic.Model(cfg.Model),
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}
}

// Generate makes a single messages call and returns the generated text.
// No retries: one API invocation per call, and no timeout beyond whatever
// the context and underlying transport impose.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classify(err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("unexpected response format: no content blocks")
	}
	content := message.Content[0]
	if content.Type != "text" {
		return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
	}
	return content.Text, nil
}

// classify maps an Anthropic API error to the service taxonomy: 401/403
// become ErrAuthentication, everything else a GenerationError.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return ErrAuthentication
		}
	}
	return &GenerationError{Err: err}
}
