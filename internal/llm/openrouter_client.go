package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openRouterClient talks to OpenRouter's OpenAI-compatible chat endpoint.
type openRouterClient struct {
	model       string
	base        string
	temperature float32
	maxInput    int
	prompt      promptOptions
	client      *http.Client
}

func (c *openRouterClient) Name() string {
	return fmt.Sprintf("OpenRouter (%s)", c.model)
}

func (c *openRouterClient) NeedsAPIKey() bool {
	return true
}

func (c *openRouterClient) GeneratePost(ctx context.Context, req PostRequest) (Post, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		return Post{}, ErrMissingAPIKey
	}
	text := clipText(req.Text, c.maxInput)
	if text == "" {
		return Post{}, ErrEmptyInput
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.base
	cfg.HTTPClient = c.client
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(c.prompt)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    c.temperature,
	})
	if err != nil {
		return Post{}, describeAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return Post{}, ErrNoChoices
	}
	return parsePost(resp.Choices[0].Message.Content)
}

func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openrouter API error: %d %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openrouter request failed: %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("openrouter request failed: %w", err)
}
