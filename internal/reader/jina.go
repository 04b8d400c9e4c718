package reader

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// JinaClient fetches articles through the r.jina.ai reader, which returns
// the page already converted to markdown.
type JinaClient struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Fetch implements Fetcher.
func (c *JinaClient) Fetch(ctx context.Context, rawURL string) (string, error) {
	target, err := validateURL(rawURL)
	if err != nil {
		return "", err
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultJinaEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := pickHTTPClient(c.HTTPClient, 0).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetBytes))
		return "", &StatusError{Source: "jina reader", Status: resp.Status, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
