package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/csheth/repost/internal/chunks"
	"github.com/csheth/repost/internal/llm"
	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/telegram"
)

// Fetcher returns the readable text behind an article address.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Generator turns segment text into a post.
type Generator interface {
	GeneratePost(ctx context.Context, req llm.PostRequest) (llm.Post, error)
	NeedsAPIKey() bool
}

// ImageResolver derives an image address from a prompt.
type ImageResolver interface {
	URL(prompt string) string
}

// Publisher delivers a photo post.
type Publisher interface {
	SendPhoto(ctx context.Context, photo telegram.Photo) error
}

// SettingsSource supplies the current credentials.
type SettingsSource interface {
	Get() settings.Values
}

// Operation names the in-flight job.
type Operation string

const (
	OpNone     Operation = ""
	OpFetch    Operation = "fetch"
	OpGenerate Operation = "generate"
	OpPublish  Operation = "publish"
)

// Options wires a Session.
type Options struct {
	Fetcher   Fetcher
	Generator Generator
	Images    ImageResolver
	Publisher Publisher
	Settings  SettingsSource

	SegmentLength   int
	FetchTimeout    time.Duration
	GenerateTimeout time.Duration
	PublishTimeout  time.Duration

	Logger *zap.Logger
}

// Session connects user actions to the document state and the network
// collaborators. At most one fetch, generate or publish runs at a time;
// navigation and caption edits are always allowed.
type Session struct {
	fetcher   Fetcher
	generator Generator
	images    ImageResolver
	publisher Publisher
	settings  SettingsSource

	segmentLength   int
	fetchTimeout    time.Duration
	generateTimeout time.Duration
	publishTimeout  time.Duration

	log *zap.Logger

	mu   sync.Mutex
	doc  *chunks.Document
	busy Operation
	// op identifies the operation holding the busy flag.
	op uint64
}

// New validates opts and returns an empty session.
func New(opts Options) (*Session, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("workflow: fetcher is required")
	case opts.Generator == nil:
		return nil, errors.New("workflow: generator is required")
	case opts.Images == nil:
		return nil, errors.New("workflow: image resolver is required")
	case opts.Publisher == nil:
		return nil, errors.New("workflow: publisher is required")
	case opts.Settings == nil:
		return nil, errors.New("workflow: settings are required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	segmentLength := opts.SegmentLength
	if segmentLength <= 0 {
		segmentLength = chunks.DefaultSegmentLength
	}
	return &Session{
		fetcher:         opts.Fetcher,
		generator:       opts.Generator,
		images:          opts.Images,
		publisher:       opts.Publisher,
		settings:        opts.Settings,
		segmentLength:   segmentLength,
		fetchTimeout:    opts.FetchTimeout,
		generateTimeout: opts.GenerateTimeout,
		publishTimeout:  opts.PublishTimeout,
		log:             log.Named("workflow"),
		doc:             chunks.New(),
	}, nil
}

// State is a snapshot of the session for rendering.
type State struct {
	chunks.Snapshot
	Busy      bool      `json:"busy"`
	Operation Operation `json:"operation,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Snapshot: s.doc.Snapshot(), Busy: s.busy != OpNone, Operation: s.busy}
}

// Busy reports the in-flight operation, if any.
func (s *Session) Busy() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Release clears the busy flag regardless of which operation holds it. The
// abandoned operation's completion no longer changes the document.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = OpNone
	s.op++
}

// acquire must be called with mu held.
func (s *Session) acquire(op Operation) (uint64, error) {
	if s.busy != OpNone {
		return 0, busy()
	}
	s.op++
	s.busy = op
	return s.op, nil
}

// release must be called with mu held. A ticket whose operation was
// released already leaves the flag alone.
func (s *Session) release(op uint64) {
	if s.op == op {
		s.busy = OpNone
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// FetchTicket captures an issued fetch.
type FetchTicket struct {
	URL string
	op  uint64
}

// ID distinguishes tickets issued by the same session.
func (t FetchTicket) ID() uint64 {
	return t.op
}

// BeginFetch validates rawURL and marks the session busy.
func (s *Session) BeginFetch(rawURL string) (FetchTicket, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return FetchTicket{}, invalid("url", "Please enter an article URL")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.acquire(OpFetch)
	if err != nil {
		return FetchTicket{}, err
	}
	return FetchTicket{URL: rawURL, op: op}, nil
}

// RunFetch performs the network part of a fetch. It does not touch state.
func (s *Session) RunFetch(ctx context.Context, t FetchTicket) (string, error) {
	ctx, cancel := withTimeout(ctx, s.fetchTimeout)
	defer cancel()
	return s.fetcher.Fetch(ctx, t.URL)
}

// CompleteFetch replaces the document with text on success. A fetch that
// was released before it finished is discarded.
func (s *Session) CompleteFetch(t FetchTicket, text string, fetchErr error) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.op != t.op {
		s.log.Info("discarded abandoned fetch", zap.String("url", t.URL), zap.Error(fetchErr))
		return warning("Discarded the abandoned fetch of %s", t.URL), nil
	}
	s.release(t.op)

	if fetchErr != nil {
		err := wrap(ErrFetch, fetchErr)
		s.log.Warn("fetch failed", zap.String("url", t.URL), zap.Error(fetchErr))
		return ErrorNotice(err), err
	}
	s.doc.Load(t.URL, text, s.segmentLength)
	total := s.doc.Len()
	s.log.Info("document loaded",
		zap.String("url", t.URL),
		zap.Int("segments", total),
		zap.Uint64("revision", s.doc.Revision()),
	)
	if total == 0 {
		return warning("The article has no readable text"), nil
	}
	return success("Loaded %d %s", total, plural(total, "segment", "segments")), nil
}

// Fetch runs a whole fetch.
func (s *Session) Fetch(ctx context.Context, rawURL string) (Notice, error) {
	t, err := s.BeginFetch(rawURL)
	if err != nil {
		return ErrorNotice(err), err
	}
	text, err := s.RunFetch(ctx, t)
	return s.CompleteFetch(t, text, err)
}

// GenerateTicket captures the segment a generation was issued for. The
// result is written back to Index even if the user navigates away.
type GenerateTicket struct {
	Revision uint64
	Index    int
	Text     string
	apiKey   string
	op       uint64
}

// BeginGenerate validates the active segment and the credential.
func (s *Session) BeginGenerate() (GenerateTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginGenerate(s.doc.Active())
}

// BeginGenerateAt is BeginGenerate for an explicit segment.
func (s *Session) BeginGenerateAt(index int) (GenerateTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.doc.Len() {
		return GenerateTicket{}, invalid("index", "No such segment")
	}
	return s.beginGenerate(index)
}

func (s *Session) beginGenerate(index int) (GenerateTicket, error) {
	if s.busy != OpNone {
		return GenerateTicket{}, busy()
	}
	text := s.doc.Segment(index)
	if strings.TrimSpace(text) == "" {
		return GenerateTicket{}, invalid("segment", "There is no text to generate a post from")
	}
	apiKey := s.settings.Get().OpenRouterKey
	if s.generator.NeedsAPIKey() && apiKey == "" {
		return GenerateTicket{}, invalid(settings.FieldOpenRouterKey, "Add your OpenRouter API key in settings")
	}
	op, err := s.acquire(OpGenerate)
	if err != nil {
		return GenerateTicket{}, err
	}
	return GenerateTicket{Revision: s.doc.Revision(), Index: index, Text: text, apiKey: apiKey, op: op}, nil
}

// RunGenerate calls the generator. It does not touch state.
func (s *Session) RunGenerate(ctx context.Context, t GenerateTicket) (llm.Post, error) {
	ctx, cancel := withTimeout(ctx, s.generateTimeout)
	defer cancel()
	return s.generator.GeneratePost(ctx, llm.PostRequest{APIKey: t.apiKey, Text: t.Text})
}

// CompleteGenerate stores the post at the ticket's segment. Results for a
// document that has since been replaced are discarded.
func (s *Session) CompleteGenerate(t GenerateTicket, post llm.Post, genErr error) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(t.op)

	if genErr != nil {
		err := wrap(ErrGeneration, genErr)
		s.log.Warn("generation failed", zap.Int("segment", t.Index), zap.Error(genErr))
		return ErrorNotice(err), err
	}
	result := chunks.Result{
		Caption:     post.Caption,
		ImagePrompt: post.ImagePrompt,
		ImageURL:    s.images.URL(post.ImagePrompt),
	}
	if !s.doc.SetResultAt(t.Revision, t.Index, result) {
		s.log.Info("discarded stale generation",
			zap.Int("segment", t.Index),
			zap.Uint64("revision", t.Revision),
			zap.Uint64("current_revision", s.doc.Revision()),
		)
		return warning("The article changed; discarded the post for segment %d", t.Index+1), nil
	}
	s.log.Info("post generated", zap.Int("segment", t.Index), zap.Int("caption_chars", len([]rune(result.Caption))))
	if result.ImageURL == "" {
		return warning("Post generated for segment %d without an image prompt", t.Index+1), nil
	}
	return success("Post generated for segment %d", t.Index+1), nil
}

// Generate runs a whole generation for the active segment.
func (s *Session) Generate(ctx context.Context) (Notice, error) {
	t, err := s.BeginGenerate()
	if err != nil {
		return ErrorNotice(err), err
	}
	post, err := s.RunGenerate(ctx, t)
	return s.CompleteGenerate(t, post, err)
}

// GenerateAt runs a whole generation for segment index.
func (s *Session) GenerateAt(ctx context.Context, index int) (Notice, error) {
	t, err := s.BeginGenerateAt(index)
	if err != nil {
		return ErrorNotice(err), err
	}
	post, err := s.RunGenerate(ctx, t)
	return s.CompleteGenerate(t, post, err)
}

// PublishTicket captures the photo an issued publish will send.
type PublishTicket struct {
	Index int
	Photo telegram.Photo
	op    uint64
}

// BeginPublish validates the active result and the Telegram settings.
func (s *Session) BeginPublish() (PublishTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginPublish(s.doc.Active())
}

// BeginPublishAt is BeginPublish for an explicit segment.
func (s *Session) BeginPublishAt(index int) (PublishTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.doc.Len() {
		return PublishTicket{}, invalid("index", "No such segment")
	}
	return s.beginPublish(index)
}

func (s *Session) beginPublish(index int) (PublishTicket, error) {
	if s.busy != OpNone {
		return PublishTicket{}, busy()
	}
	result := s.doc.Result(index)
	if !result.Publishable() {
		return PublishTicket{}, invalid("result", "Generate a post with an image before publishing")
	}
	values := s.settings.Get()
	if values.TelegramBotToken == "" {
		return PublishTicket{}, invalid(settings.FieldTelegramBotToken, "Add your Telegram bot token in settings")
	}
	if values.ChannelID == "" {
		return PublishTicket{}, invalid(settings.FieldChannelID, "Add the Telegram channel ID in settings")
	}
	op, err := s.acquire(OpPublish)
	if err != nil {
		return PublishTicket{}, err
	}
	return PublishTicket{
		Index: index,
		Photo: telegram.Photo{
			BotToken: values.TelegramBotToken,
			ChatID:   values.ChannelID,
			PhotoURL: result.ImageURL,
			Caption:  result.Caption,
		},
		op: op,
	}, nil
}

// RunPublish sends the photo. It does not touch state.
func (s *Session) RunPublish(ctx context.Context, t PublishTicket) error {
	ctx, cancel := withTimeout(ctx, s.publishTimeout)
	defer cancel()
	return s.publisher.SendPhoto(ctx, t.Photo)
}

// CompletePublish clears the busy flag and reports the outcome.
func (s *Session) CompletePublish(t PublishTicket, pubErr error) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(t.op)

	if pubErr != nil {
		err := wrap(ErrPublish, pubErr)
		s.log.Warn("publish failed", zap.Int("segment", t.Index), zap.String("chat", t.Photo.ChatID), zap.Error(pubErr))
		return ErrorNotice(err), err
	}
	s.log.Info("post published", zap.Int("segment", t.Index), zap.String("chat", t.Photo.ChatID))
	return success("Published segment %d to %s", t.Index+1, t.Photo.ChatID), nil
}

// Publish runs a whole publish of the active result.
func (s *Session) Publish(ctx context.Context) (Notice, error) {
	t, err := s.BeginPublish()
	if err != nil {
		return ErrorNotice(err), err
	}
	return s.CompletePublish(t, s.RunPublish(ctx, t))
}

// PublishAt runs a whole publish of segment index.
func (s *Session) PublishAt(ctx context.Context, index int) (Notice, error) {
	t, err := s.BeginPublishAt(index)
	if err != nil {
		return ErrorNotice(err), err
	}
	return s.CompletePublish(t, s.RunPublish(ctx, t))
}

// Next moves to the following segment.
func (s *Session) Next() Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Advance() {
		return info("Already at the last segment")
	}
	return s.positionLocked()
}

// Previous moves to the preceding segment.
func (s *Session) Previous() Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Retreat() {
		return info("Already at the first segment")
	}
	return s.positionLocked()
}

// Select jumps to index, clamped into range.
func (s *Session) Select(index int) Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SetActive(index)
	return s.positionLocked()
}

func (s *Session) positionLocked() Notice {
	if s.doc.Empty() {
		return info("No article loaded")
	}
	return info("Segment %d of %d", s.doc.Active()+1, s.doc.Len())
}

// EditCaption replaces the active caption and keeps its image.
func (s *Session) EditCaption(caption string) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Empty() {
		err := invalid("segment", "No article loaded")
		return ErrorNotice(err), err
	}
	current := s.doc.CurrentResult()
	if current.IsZero() {
		err := invalid("result", "Generate a post before editing it")
		return ErrorNotice(err), err
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		err := invalid("caption", "The caption cannot be empty")
		return ErrorNotice(err), err
	}
	current.Caption = caption
	s.doc.SetResult(s.doc.Active(), current)
	return success("Caption updated"), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
