// Package providers contains LLM provider implementations for the
// classifier.
package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pledgewatch/pledgewatch/internal/classifier"
)

// AnthropicProvider implements the classifier Provider interface using
// Anthropic's Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicProvider{
		client: &client,
		model:  model,
	}
}

// Name identifies the provider in logs and errors
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate sends the request parts as one user message, images as
// first-class base64 blocks, and returns the raw text response.
func (p *AnthropicProvider) Generate(ctx context.Context, parts []classifier.Part) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		if part.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(part.ImageBytes)
		blocks = append(blocks, anthropic.NewImageBlockBase64(part.ImageMIME, encoded))
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	// Extract text from response
	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return "", fmt.Errorf("model returned empty response")
	}

	return responseText, nil
}
