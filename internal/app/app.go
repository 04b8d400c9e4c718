// Package app assembles the runtime components from configuration.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/csheth/repost/internal/config"
	"github.com/csheth/repost/internal/imagegen"
	"github.com/csheth/repost/internal/llm"
	"github.com/csheth/repost/internal/logger"
	"github.com/csheth/repost/internal/reader"
	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/telegram"
	"github.com/csheth/repost/internal/workflow"
)

// Options are the command-line overrides applied on top of the config file.
type Options struct {
	ConfigPath   string
	SettingsPath string
	LogLevel     string
	Verbose      bool
	// Terminal keeps log output off the screen for full-screen UIs.
	Terminal bool
}

// App holds the wired components.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Settings  *settings.Store
	Fetcher   reader.Fetcher
	LLM       llm.Client
	Images    imagegen.Resolver
	Publisher *telegram.Publisher
	Session   *workflow.Session
}

// New loads configuration and builds every component.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, opts)
}

// FromConfig builds the components for an already loaded configuration.
func FromConfig(cfg config.Config, opts Options) (*App, error) {
	if path := strings.TrimSpace(opts.SettingsPath); path != "" {
		cfg.SettingsPath = path
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logCfg := cfg.Log
	if opts.Terminal {
		logCfg = logger.ForTerminal(logCfg)
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}

	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	fetcher, err := reader.New(reader.Config{
		Mode:      cfg.Reader.Mode,
		Endpoint:  cfg.Reader.Endpoint,
		APIKey:    cfg.Reader.APIKey,
		UserAgent: cfg.Reader.UserAgent,
		Timeout:   cfg.Reader.Timeout,
		CacheDir:  cfg.Reader.CacheDir,
		CacheTTL:  cfg.Reader.CacheTTL,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}

	client, err := llm.New(llm.Config{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		Endpoint:      cfg.LLM.Endpoint,
		Language:      cfg.LLM.Language,
		Temperature:   cfg.LLM.Temperature,
		MaxInputChars: cfg.LLM.MaxInputChars,
		CaptionLimit:  cfg.Telegram.CaptionLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	images := imagegen.Resolver{
		Endpoint: cfg.Image.Endpoint,
		Width:    cfg.Image.Width,
		Height:   cfg.Image.Height,
		NoLogo:   cfg.Image.NoLogo,
		Model:    cfg.Image.Model,
		Seed:     cfg.Image.Seed,
	}

	publisher := telegram.New(telegram.Config{
		Endpoint:      cfg.Telegram.Endpoint,
		CaptionLimit:  cfg.Telegram.CaptionLimit,
		RatePerMinute: cfg.Telegram.RatePerMinute,
		HTTPClient:    &http.Client{Timeout: cfg.Telegram.Timeout},
	})

	session, err := workflow.New(workflow.Options{
		Fetcher:         fetcher,
		Generator:       client,
		Images:          images,
		Publisher:       publisher,
		Settings:        store,
		SegmentLength:   cfg.Document.SegmentLength,
		FetchTimeout:    cfg.Reader.Timeout,
		GenerateTimeout: cfg.LLM.Timeout,
		PublishTimeout:  cfg.Telegram.Timeout,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("components ready",
		zap.String("reader", cfg.Reader.Mode),
		zap.String("llm", client.Name()),
		zap.String("settings", store.Path()),
		zap.Int("segment_length", cfg.Document.SegmentLength),
	)

	return &App{
		Config:    cfg,
		Log:       log,
		Settings:  store,
		Fetcher:   fetcher,
		LLM:       client,
		Images:    images,
		Publisher: publisher,
		Session:   session,
	}, nil
}

// Close flushes the logger. Sync errors on stderr are ignored.
func (a *App) Close() {
	if a == nil || a.Log == nil {
		return
	}
	_ = a.Log.Sync()
}
