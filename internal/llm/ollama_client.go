package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ollamaClient struct {
	host     string
	model    string
	maxInput int
	prompt   promptOptions
	client   *http.Client
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

func (c *ollamaClient) NeedsAPIKey() bool {
	return false
}

func (c *ollamaClient) GeneratePost(ctx context.Context, req PostRequest) (Post, error) {
	text := clipText(req.Text, c.maxInput)
	if text == "" {
		return Post{}, ErrEmptyInput
	}
	raw, err := c.generate(ctx, buildSystemPrompt(c.prompt), text)
	if err != nil {
		return Post{}, err
	}
	return parsePost(raw)
}

func (c *ollamaClient) generate(ctx context.Context, system, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"system": system,
		"prompt": prompt,
		"format": "json",
		"stream": false,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ollama API error: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(parsed.Response), nil
}
