package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"

	defaultOpenRouterModel    = "tngtech/deepseek-r1t2-chimera:free"
	defaultOpenRouterEndpoint = "https://openrouter.ai/api/v1"
	defaultOllamaModel        = "ministral-3:latest"
	defaultOllamaHost         = "http://localhost:11434"
	defaultLanguage           = "English"
	defaultCaptionLimit       = 1024
	// Segments are bounded upstream; this only guards oversized direct input.
	defaultMaxInputChars = 20_000
)

const defaultLLMHTTPTimeout = 3 * time.Minute

var (
	ErrMissingAPIKey     = errors.New("api key is required")
	ErrEmptyInput        = errors.New("text is required to generate a post")
	ErrMalformedResponse = errors.New("invalid JSON response from model")
	ErrNoChoices         = errors.New("no response choices from model")
	ErrEmptyResponse     = errors.New("model returned an empty response")
)

// Config describes how to build an LLM client.
type Config struct {
	Provider      string
	Model         string
	Endpoint      string
	Language      string
	Temperature   float32
	MaxInputChars int
	CaptionLimit  int
	HTTPClient    *http.Client
}

// PostRequest carries the credential and the segment text.
type PostRequest struct {
	APIKey string
	Text   string
}

// Post is a generated social post. Caption already includes the hashtags.
type Post struct {
	Caption     string   `json:"caption"`
	ImagePrompt string   `json:"imagePrompt"`
	Hashtags    []string `json:"hashtags,omitempty"`
}

// Client turns article text into a post.
type Client interface {
	GeneratePost(ctx context.Context, req PostRequest) (Post, error)
	// NeedsAPIKey reports whether GeneratePost requires PostRequest.APIKey.
	NeedsAPIKey() bool
	Name() string
}

// New builds the client selected by cfg.Provider. Ollama also honours
// OLLAMA_HOST and OLLAMA_MODEL.
func New(cfg Config) (Client, error) {
	opts := promptOptions{
		language:     firstNonEmpty(cfg.Language, defaultLanguage),
		captionLimit: cfg.CaptionLimit,
	}
	if opts.captionLimit <= 0 {
		opts.captionLimit = defaultCaptionLimit
	}
	maxInput := cfg.MaxInputChars
	if maxInput <= 0 {
		maxInput = defaultMaxInputChars
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenRouter:
		return &openRouterClient{
			model:       firstNonEmpty(cfg.Model, defaultOpenRouterModel),
			base:        strings.TrimRight(firstNonEmpty(cfg.Endpoint, defaultOpenRouterEndpoint), "/"),
			temperature: cfg.Temperature,
			maxInput:    maxInput,
			prompt:      opts,
			client:      pickHTTPClient(cfg.HTTPClient),
		}, nil
	case ProviderOllama:
		return &ollamaClient{
			host:     strings.TrimRight(firstNonEmpty(cfg.Endpoint, os.Getenv("OLLAMA_HOST"), defaultOllamaHost), "/"),
			model:    firstNonEmpty(cfg.Model, os.Getenv("OLLAMA_MODEL"), defaultOllamaModel),
			maxInput: maxInput,
			prompt:   opts,
			client:   pickHTTPClient(cfg.HTTPClient),
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Free-tier models can take well over a minute; callers bound the call with their context.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
