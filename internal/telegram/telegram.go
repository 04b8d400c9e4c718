package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint      = "https://api.telegram.org"
	DefaultRatePerMinute = 20
	defaultHTTPTimeout   = 30 * time.Second
)

var (
	ErrMissingToken = errors.New("telegram bot token is required")
	ErrMissingChat  = errors.New("telegram channel id is required")
	ErrMissingPhoto = errors.New("photo url is required")
)

// APIError is a rejection reported by the Bot API.
type APIError struct {
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: %d %s", e.Status, e.Description)
}

// Photo is one sendPhoto call.
type Photo struct {
	BotToken string
	ChatID   string
	PhotoURL string
	Caption  string
}

// Config configures a Publisher.
type Config struct {
	Endpoint     string
	CaptionLimit int
	// RatePerMinute bounds outgoing messages; zero disables the limiter.
	RatePerMinute float64
	HTTPClient    *http.Client
}

// Publisher sends photos with captions through the Telegram Bot API.
type Publisher struct {
	endpoint     string
	captionLimit int
	limiter      *rate.Limiter
	client       *http.Client
}

// New builds a Publisher. Zero fields take the package defaults.
func New(cfg Config) *Publisher {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	limit := cfg.CaptionLimit
	if limit <= 0 {
		limit = DefaultCaptionLimit
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	p := &Publisher{endpoint: endpoint, captionLimit: limit, client: client}
	if cfg.RatePerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60), 1)
	}
	return p
}

// CaptionLimit reports the limit applied by SendPhoto.
func (p *Publisher) CaptionLimit() int {
	return p.captionLimit
}

type sendPhotoRequest struct {
	ChatID  string `json:"chat_id"`
	Photo   string `json:"photo"`
	Caption string `json:"caption,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// SendPhoto posts the photo to the chat. The caption is passed through
// FormatCaption and sent without a parse mode.
func (p *Publisher) SendPhoto(ctx context.Context, photo Photo) error {
	token := strings.TrimSpace(photo.BotToken)
	if token == "" {
		return ErrMissingToken
	}
	chatID := strings.TrimSpace(photo.ChatID)
	if chatID == "" {
		return ErrMissingChat
	}
	photoURL := strings.TrimSpace(photo.PhotoURL)
	if photoURL == "" {
		return ErrMissingPhoto
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("telegram rate limit: %w", err)
		}
	}

	body, err := json.Marshal(sendPhotoRequest{
		ChatID:  chatID,
		Photo:   photoURL,
		Caption: FormatCaption(photo.Caption, p.captionLimit),
	})
	if err != nil {
		return err
	}
	endpoint := p.endpoint + "/bot" + token + "/sendPhoto"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", redact(err, token))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", redact(err, token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}
	var parsed apiResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 400 || decodeErr != nil || !parsed.OK {
		desc := strings.TrimSpace(parsed.Description)
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Description: desc}
	}
	return nil
}

// redact drops the request URL from transport errors so the bot token never
// reaches logs or the UI.
func redact(err error, token string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
