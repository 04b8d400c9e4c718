package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/repost/internal/imagegen"
	"github.com/csheth/repost/internal/llm"
	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/telegram"
)

type fakeFetcher struct {
	text string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.urls = append(f.urls, rawURL)
	return f.text, f.err
}

type fakeGenerator struct {
	needsKey bool
	post     llm.Post
	err      error
	requests []llm.PostRequest
}

func (g *fakeGenerator) GeneratePost(ctx context.Context, req llm.PostRequest) (llm.Post, error) {
	g.requests = append(g.requests, req)
	return g.post, g.err
}

func (g *fakeGenerator) NeedsAPIKey() bool { return g.needsKey }

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	photos []telegram.Photo
}

func (p *fakePublisher) SendPhoto(ctx context.Context, photo telegram.Photo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.photos = append(p.photos, photo)
	return p.err
}

type staticSettings struct{ values settings.Values }

func (s staticSettings) Get() settings.Values { return s.values }

type fixture struct {
	session   *Session
	fetcher   *fakeFetcher
	generator *fakeGenerator
	publisher *fakePublisher
}

func newFixture(t *testing.T, values settings.Values) fixture {
	t.Helper()
	f := fixture{
		fetcher:   &fakeFetcher{text: strings.Repeat("a", 12000)},
		generator: &fakeGenerator{needsKey: true, post: llm.Post{Caption: "Caption.", ImagePrompt: "a red fox"}},
		publisher: &fakePublisher{},
	}
	session, err := New(Options{
		Fetcher:       f.fetcher,
		Generator:     f.generator,
		Images:        imagegen.New(),
		Publisher:     f.publisher,
		Settings:      staticSettings{values: values},
		SegmentLength: 5000,
	})
	require.NoError(t, err)
	f.session = session
	return f
}

var fullSettings = settings.Values{OpenRouterKey: "sk-or-key", TelegramBotToken: "123:abc", ChannelID: "@chan"}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestFetchLoadsSegments(t *testing.T) {
	f := newFixture(t, fullSettings)

	notice, err := f.session.Fetch(context.Background(), "  https://example.com/post ")
	require.NoError(t, err)
	assert.Equal(t, LevelSuccess, notice.Level)
	assert.Equal(t, "Loaded 3 segments", notice.Message)
	assert.Equal(t, []string{"https://example.com/post"}, f.fetcher.urls)

	state := f.session.Snapshot()
	assert.Equal(t, 3, state.Total)
	assert.Equal(t, 0, state.Active)
	assert.Len(t, state.Results, 3)
	assert.Len(t, state.Segments[2], 2000)
	assert.False(t, state.Busy)
}

func TestFetchValidatesBeforeNetwork(t *testing.T) {
	f := newFixture(t, fullSettings)

	_, err := f.session.Fetch(context.Background(), "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)
	assert.Empty(t, f.fetcher.urls)
}

func TestFetchFailureKeepsDocument(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	cause := errors.New("jina error: 502 Bad Gateway")
	f.fetcher.err = cause
	notice, err := f.session.Fetch(context.Background(), "https://example.com/other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, LevelError, notice.Level)

	state := f.session.Snapshot()
	assert.Equal(t, 3, state.Total)
	assert.Equal(t, "https://example.com", state.Source)
	assert.False(t, state.Busy)
}

func TestFetchEmptyText(t *testing.T) {
	f := newFixture(t, fullSettings)
	f.fetcher.text = ""

	notice, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, LevelWarning, notice.Level)

	state := f.session.Snapshot()
	assert.Equal(t, 0, state.Total)
	assert.Equal(t, 0, state.Active)

	_, err = f.session.Generate(context.Background())
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.generator.requests)
}

func TestGenerateStoresResultWithImage(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	notice, err := f.session.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LevelSuccess, notice.Level)

	require.Len(t, f.generator.requests, 1)
	assert.Equal(t, "sk-or-key", f.generator.requests[0].APIKey)
	assert.Len(t, f.generator.requests[0].Text, 5000)

	result := f.session.Snapshot().Result
	assert.Equal(t, "Caption.", result.Caption)
	assert.Equal(t, "a red fox", result.ImagePrompt)
	assert.Equal(t, imagegen.New().URL("a red fox"), result.ImageURL)
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	f := newFixture(t, settings.Values{})
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	_, err = f.session.Generate(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, settings.FieldOpenRouterKey, verr.Field)
	assert.Empty(t, f.generator.requests)

	f.generator.needsKey = false
	_, err = f.session.Generate(context.Background())
	require.NoError(t, err)
}

func TestGenerateFailureWrapsCause(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	f.generator.err = llm.ErrMalformedResponse
	_, err = f.session.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
	assert.True(t, f.session.Snapshot().Result.IsZero())
	assert.Equal(t, OpNone, f.session.Busy())
}

func TestGenerationWritesToOriginSegment(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	ticket, err := f.session.BeginGenerate()
	require.NoError(t, err)
	assert.Equal(t, 0, ticket.Index)

	f.session.Next()
	assert.Equal(t, 1, f.session.Snapshot().Active)

	_, err = f.session.CompleteGenerate(ticket, llm.Post{Caption: "First.", ImagePrompt: "one"}, nil)
	require.NoError(t, err)

	state := f.session.Snapshot()
	assert.Equal(t, 1, state.Active)
	assert.Equal(t, "First.", state.Results[0].Caption)
	assert.True(t, state.Results[1].IsZero())
	assert.True(t, state.Result.IsZero())
}

func TestGenerationDiscardedAfterReload(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	ticket, err := f.session.BeginGenerate()
	require.NoError(t, err)
	f.session.Release()

	_, err = f.session.Fetch(context.Background(), "https://example.com/next")
	require.NoError(t, err)

	notice, err := f.session.CompleteGenerate(ticket, llm.Post{Caption: "Old.", ImagePrompt: "old"}, nil)
	require.NoError(t, err)
	assert.Equal(t, LevelWarning, notice.Level)
	for _, r := range f.session.Snapshot().Results {
		assert.True(t, r.IsZero())
	}
}

func TestAbandonedFetchDoesNotReplaceNewerDocument(t *testing.T) {
	f := newFixture(t, fullSettings)

	old, err := f.session.BeginFetch("https://example.com/old")
	require.NoError(t, err)
	f.session.Release()
	assert.Equal(t, OpNone, f.session.Busy())

	_, err = f.session.Fetch(context.Background(), "https://example.com/new")
	require.NoError(t, err)
	f.session.Next()
	before := f.session.Snapshot()

	notice, err := f.session.CompleteFetch(old, "stale old text", nil)
	require.NoError(t, err)
	assert.Equal(t, LevelWarning, notice.Level)
	assert.Contains(t, notice.Message, "https://example.com/old")

	after := f.session.Snapshot()
	assert.Equal(t, "https://example.com/new", after.Source)
	assert.Equal(t, before.Revision, after.Revision)
	assert.Equal(t, 1, after.Active)
	assert.Equal(t, 3, after.Total)

	_, err = f.session.CompleteFetch(old, "", errors.New("timeout"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/new", f.session.Snapshot().Source)
}

func TestAbandonedFetchLeavesNewerBusyFlag(t *testing.T) {
	f := newFixture(t, fullSettings)

	old, err := f.session.BeginFetch("https://example.com/old")
	require.NoError(t, err)
	f.session.Release()
	current, err := f.session.BeginFetch("https://example.com/new")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID(), current.ID())

	_, err = f.session.CompleteFetch(old, "stale", nil)
	require.NoError(t, err)
	assert.Equal(t, OpFetch, f.session.Busy())

	_, err = f.session.CompleteFetch(current, "fresh text", nil)
	require.NoError(t, err)
	assert.Equal(t, OpNone, f.session.Busy())
	assert.Equal(t, "fresh text", f.session.Snapshot().Text)
}

func TestBusyRejectsSecondOperation(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	ticket, err := f.session.BeginGenerate()
	require.NoError(t, err)
	assert.Equal(t, OpGenerate, f.session.Busy())

	_, err = f.session.BeginFetch("https://example.com/2")
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, IsValidation(err))
	_, err = f.session.BeginPublish()
	assert.ErrorIs(t, err, ErrBusy)

	// navigation stays available
	assert.Equal(t, "Segment 2 of 3", f.session.Next().Message)

	_, err = f.session.CompleteGenerate(ticket, f.generator.post, nil)
	require.NoError(t, err)
	assert.Equal(t, OpNone, f.session.Busy())
}

func TestStaleTicketDoesNotClearNewerBusyFlag(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	old, err := f.session.BeginGenerate()
	require.NoError(t, err)
	f.session.Release()

	_, err = f.session.BeginGenerate()
	require.NoError(t, err)

	_, err = f.session.CompleteGenerate(old, f.generator.post, nil)
	require.NoError(t, err)
	assert.Equal(t, OpGenerate, f.session.Busy())
}

func TestNavigationNotices(t *testing.T) {
	f := newFixture(t, fullSettings)
	assert.Equal(t, "Already at the first segment", f.session.Previous().Message)

	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, "Already at the first segment", f.session.Previous().Message)
	assert.Equal(t, "Segment 3 of 3", f.session.Select(99).Message)
	assert.Equal(t, "Already at the last segment", f.session.Next().Message)
	assert.Equal(t, "Segment 1 of 3", f.session.Select(-4).Message)
}

func TestPublishFlow(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	_, err = f.session.Publish(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "result", verr.Field)

	_, err = f.session.Generate(context.Background())
	require.NoError(t, err)

	notice, err := f.session.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LevelSuccess, notice.Level)
	require.Len(t, f.publisher.photos, 1)
	photo := f.publisher.photos[0]
	assert.Equal(t, "123:abc", photo.BotToken)
	assert.Equal(t, "@chan", photo.ChatID)
	assert.Equal(t, "Caption.", photo.Caption)
	assert.Equal(t, f.session.Snapshot().Result.ImageURL, photo.PhotoURL)
}

func TestPublishRequiresTelegramSettings(t *testing.T) {
	tests := []struct {
		name   string
		values settings.Values
		field  string
	}{
		{name: "token", values: settings.Values{OpenRouterKey: "k", ChannelID: "@c"}, field: settings.FieldTelegramBotToken},
		{name: "channel", values: settings.Values{OpenRouterKey: "k", TelegramBotToken: "t"}, field: settings.FieldChannelID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.values)
			_, err := f.session.Fetch(context.Background(), "https://example.com")
			require.NoError(t, err)
			_, err = f.session.Generate(context.Background())
			require.NoError(t, err)

			_, err = f.session.Publish(context.Background())
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, f.publisher.photos)
		})
	}
}

func TestPublishFailureWrapsCause(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	_, err = f.session.Generate(context.Background())
	require.NoError(t, err)

	f.publisher.err = &telegram.APIError{Status: 400, Description: "Bad Request: chat not found"}
	notice, err := f.session.Publish(context.Background())
	assert.ErrorIs(t, err, ErrPublish)
	var apiErr *telegram.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, notice.Message, "chat not found")
	assert.Equal(t, OpNone, f.session.Busy())
}

func TestEditCaption(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.EditCaption("x")
	assert.True(t, IsValidation(err))

	_, err = f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	_, err = f.session.EditCaption("x")
	assert.True(t, IsValidation(err))

	_, err = f.session.Generate(context.Background())
	require.NoError(t, err)
	before := f.session.Snapshot().Result

	_, err = f.session.EditCaption("  Edited caption  ")
	require.NoError(t, err)
	after := f.session.Snapshot().Result
	assert.Equal(t, "Edited caption", after.Caption)
	assert.Equal(t, before.ImageURL, after.ImageURL)

	_, err = f.session.EditCaption("   ")
	assert.True(t, IsValidation(err))
}

func TestGenerateAtAndPublishAt(t *testing.T) {
	f := newFixture(t, fullSettings)
	_, err := f.session.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)

	_, err = f.session.GenerateAt(context.Background(), 5)
	assert.True(t, IsValidation(err))

	_, err = f.session.GenerateAt(context.Background(), 2)
	require.NoError(t, err)
	state := f.session.Snapshot()
	assert.Equal(t, 0, state.Active)
	assert.False(t, state.Results[2].IsZero())
	assert.Len(t, f.generator.requests[0].Text, 2000)

	_, err = f.session.PublishAt(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, f.publisher.photos, 1)
}

func TestErrorNotice(t *testing.T) {
	assert.Equal(t, Notice{}, ErrorNotice(nil))
	assert.Equal(t, LevelWarning, ErrorNotice(invalid("url", "missing")).Level)
	assert.Equal(t, LevelError, ErrorNotice(wrap(ErrFetch, errors.New("boom"))).Level)
	assert.Equal(t, "fetch failed: boom", wrap(ErrFetch, errors.New("boom")).Error())
}
