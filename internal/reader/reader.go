package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultJinaEndpoint prefixes the article address.
	DefaultJinaEndpoint = "https://r.jina.ai/"

	defaultHTTPTimeout = 35 * time.Second
	maxBodyBytes       = 32 << 20
	errorSnippetBytes  = 512
)

// ErrEmptyURL is returned when no address is supplied.
var ErrEmptyURL = errors.New("url is required")

// Fetcher turns an article address into markdown or plain text.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Source string
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s error: %s", e.Source, e.Status)
	}
	return fmt.Sprintf("%s error: %s (%s)", e.Source, e.Status, e.Body)
}

// Config describes how to build a Fetcher.
type Config struct {
	Mode       string
	Endpoint   string
	APIKey     string
	UserAgent  string
	Timeout    time.Duration
	CacheDir   string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New builds the Fetcher for cfg.Mode: "jina", "direct" or "auto" (jina
// first, then direct). A positive CacheTTL wraps the result in a disk cache.
func New(cfg Config) (Fetcher, error) {
	client := pickHTTPClient(cfg.HTTPClient, cfg.Timeout)
	jina := &JinaClient{Endpoint: cfg.Endpoint, APIKey: cfg.APIKey, HTTPClient: client}
	direct := &DirectClient{UserAgent: cfg.UserAgent, HTTPClient: client}

	var fetcher Fetcher
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", "jina":
		mode = "jina"
		fetcher = jina
	case "direct":
		fetcher = direct
	case "auto":
		fetcher = Chain{jina, direct}
	default:
		return nil, fmt.Errorf("unknown reader mode %q", cfg.Mode)
	}

	if cfg.CacheTTL <= 0 {
		return fetcher, nil
	}
	return NewCache(fetcher, CacheConfig{Dir: cfg.CacheDir, TTL: cfg.CacheTTL, Namespace: mode, Logger: cfg.Logger})
}

func pickHTTPClient(custom *http.Client, timeout time.Duration) *http.Client {
	if custom != nil {
		return custom
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func validateURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" {
		rawURL = "https://" + rawURL
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	return rawURL, nil
}

// Chain tries each Fetcher in order and returns the first success.
type Chain []Fetcher

// Fetch implements Fetcher.
func (c Chain) Fetch(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", ErrEmptyURL
	}
	var errs []error
	for _, f := range c {
		text, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrEmptyURL) || ctx.Err() != nil {
			return "", err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("no fetchers configured")
	}
	return "", errors.Join(errs...)
}
