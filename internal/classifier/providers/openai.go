package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pledgewatch/pledgewatch/internal/classifier"
)

// OpenAIProvider implements the classifier Provider interface using the
// OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name identifies the provider in logs and errors
func (p *OpenAIProvider) Name() string { return "openai" }

// Generate sends the request parts as one user message, images as data-URL
// parts, and returns the raw text response.
func (p *OpenAIProvider) Generate(ctx context.Context, parts []classifier.Part) (string, error) {
	content := make([]openai.ChatMessagePart, 0, len(parts))
	for _, part := range parts {
		if part.Text != "" {
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})
			continue
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s",
			part.ImageMIME, base64.StdEncoding.EncodeToString(part.ImageBytes))
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: 4096,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: content,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("model returned empty response")
	}

	return resp.Choices[0].Message.Content, nil
}
