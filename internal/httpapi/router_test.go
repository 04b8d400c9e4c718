package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/repost/internal/imagegen"
	"github.com/csheth/repost/internal/llm"
	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/telegram"
	"github.com/csheth/repost/internal/workflow"
)

type stubFetcher struct {
	text string
	err  error
}

func (f stubFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	return f.text, f.err
}

// contextFetcher fails when its context is already done.
type contextFetcher struct{ text string }

func (f contextFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.text, nil
}

type stubGenerator struct {
	post llm.Post
	err  error
}

func (g stubGenerator) GeneratePost(ctx context.Context, req llm.PostRequest) (llm.Post, error) {
	return g.post, g.err
}

func (g stubGenerator) NeedsAPIKey() bool { return true }

type stubPublisher struct {
	photos []telegram.Photo
	err    error
}

func (p *stubPublisher) SendPhoto(ctx context.Context, photo telegram.Photo) error {
	p.photos = append(p.photos, photo)
	return p.err
}

type apiFixture struct {
	server    *httptest.Server
	store     *settings.Store
	publisher *stubPublisher
}

func newAPIFixture(t *testing.T, fetcher stubFetcher, generator stubGenerator) apiFixture {
	t.Helper()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	publisher := &stubPublisher{}
	session, err := workflow.New(workflow.Options{
		Fetcher:       fetcher,
		Generator:     generator,
		Images:        imagegen.New(),
		Publisher:     publisher,
		Settings:      store,
		SegmentLength: 100,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{Session: session, Settings: store, CORSOrigins: []string{"https://app.example"}}))
	t.Cleanup(srv.Close)
	return apiFixture{server: srv, store: store, publisher: publisher}
}

func (f apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeAction(t *testing.T, data []byte) ActionResponse {
	t.Helper()
	var out ActionResponse
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, stubFetcher{}, stubGenerator{})
	resp, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestFetchNavigateGenerateAndPublish(t *testing.T) {
	f := newAPIFixture(t,
		stubFetcher{text: strings.Repeat("b", 250)},
		stubGenerator{post: llm.Post{Caption: "**Read** this", ImagePrompt: "a lighthouse"}},
	)
	require.NoError(t, f.store.Save(settings.Values{OpenRouterKey: "sk-or-key", TelegramBotToken: "1:tok", ChannelID: "@chan"}))

	resp, body := f.do(t, http.MethodPost, "/api/fetch", map[string]string{"url": "https://example.com/post"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeAction(t, body)
	assert.Equal(t, 3, out.Document.Total)
	assert.Equal(t, "Loaded 3 segments", out.Notice.Message)

	resp, body = f.do(t, http.MethodPost, "/api/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeAction(t, body).Document.Active)

	resp, body = f.do(t, http.MethodPost, "/api/segments/active/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out = decodeAction(t, body)
	assert.Equal(t, "**Read** this", out.Document.Result.Caption)
	assert.Equal(t, "https://image.pollinations.ai/prompt/a%20lighthouse?width=1024&height=1024&nologo=true", out.Document.Result.ImageURL)

	resp, body = f.do(t, http.MethodPut, "/api/segments/active/caption", map[string]string{"caption": "Edited caption"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Edited caption", decodeAction(t, body).Document.Result.Caption)

	resp, body = f.do(t, http.MethodPost, "/api/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Len(t, f.publisher.photos, 1)
	assert.Equal(t, "@chan", f.publisher.photos[0].ChatID)
	assert.Equal(t, "Edited caption", f.publisher.photos[0].Caption)

	resp, body = f.do(t, http.MethodPost, "/api/active", map[string]int{"index": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeAction(t, body).Document.Active)

	resp, body = f.do(t, http.MethodGet, "/api/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state workflow.State
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, "https://example.com/post", state.Source)
	assert.Len(t, state.Results, 3)
}

func TestGenerateByIndex(t *testing.T) {
	f := newAPIFixture(t,
		stubFetcher{text: strings.Repeat("c", 150)},
		stubGenerator{post: llm.Post{Caption: "Second", ImagePrompt: "waves"}},
	)
	require.NoError(t, f.store.Save(settings.Values{OpenRouterKey: "sk-or-key"}))
	resp, _ := f.do(t, http.MethodPost, "/api/fetch", map[string]string{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/segments/1/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeAction(t, body)
	assert.Equal(t, 0, out.Document.Active)
	assert.Equal(t, "Second", out.Document.Results[1].Caption)
	assert.True(t, out.Document.Results[0].IsZero())

	resp, _ = f.do(t, http.MethodPost, "/api/segments/first/generate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorStatuses(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		f := newAPIFixture(t, stubFetcher{}, stubGenerator{})
		resp, body := f.do(t, http.MethodPost, "/api/fetch", map[string]string{"url": "  "})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var out ErrorResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, "url", out.Field)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("missing key", func(t *testing.T) {
		f := newAPIFixture(t, stubFetcher{text: "hello"}, stubGenerator{})
		resp, _ := f.do(t, http.MethodPost, "/api/fetch", map[string]string{"url": "https://example.com"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, body := f.do(t, http.MethodPost, "/api/segments/active/generate", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var out ErrorResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, "openRouterKey", out.Field)
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := newAPIFixture(t, stubFetcher{err: errors.New("connection refused")}, stubGenerator{})
		resp, body := f.do(t, http.MethodPost, "/api/fetch", map[string]string{"url": "https://example.com"})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Contains(t, string(body), "connection refused")
	})

	t.Run("bad body", func(t *testing.T) {
		f := newAPIFixture(t, stubFetcher{}, stubGenerator{})
		req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/fetch", strings.NewReader("{"))
		require.NoError(t, err)
		resp, err := f.server.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("select without index", func(t *testing.T) {
		f := newAPIFixture(t, stubFetcher{}, stubGenerator{})
		resp, _ := f.do(t, http.MethodPost, "/api/active", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestErrorStatusBusy(t *testing.T) {
	status, body := errorStatus(workflow.ErrBusy)
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, body.Error)

	status, _ = errorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestSettingsMaskedAndPartialUpdate(t *testing.T) {
	f := newAPIFixture(t, stubFetcher{}, stubGenerator{})
	require.NoError(t, f.store.Save(settings.Values{OpenRouterKey: "sk-1234567890abcdef", ChannelID: "@old"}))

	resp, body := f.do(t, http.MethodPut, "/api/settings", map[string]string{"channelId": "@new"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var masked settings.Values
	require.NoError(t, json.Unmarshal(body, &masked))
	assert.Equal(t, "@new", masked.ChannelID)
	assert.Equal(t, "sk-1...cdef", masked.OpenRouterKey)

	stored := f.store.Get()
	assert.Equal(t, "sk-1234567890abcdef", stored.OpenRouterKey)
	assert.Equal(t, "@new", stored.ChannelID)

	resp, body = f.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "sk-1234567890abcdef")
}

func TestCORS(t *testing.T) {
	f := newAPIFixture(t, stubFetcher{}, stubGenerator{})

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/fetch", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, f.server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = f.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestClientDisconnectDoesNotCancelUpstreamCalls(t *testing.T) {
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	session, err := workflow.New(workflow.Options{
		Fetcher:   contextFetcher{text: "still fetched"},
		Generator: stubGenerator{post: llm.Post{Caption: "Caption", ImagePrompt: "fox"}},
		Images:    imagegen.New(),
		Publisher: &stubPublisher{},
		Settings:  store,
	})
	require.NoError(t, err)
	router := NewRouter(Deps{Session: session, Settings: store})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(`{"url":"https://example.com"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "still fetched", session.Snapshot().Text)
}
