package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendPhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/bot123:abc/sendPhoto" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["chat_id"] != "@channel" {
			t.Fatalf("unexpected chat: %v", payload["chat_id"])
		}
		if payload["photo"] != "https://img.example/p.png" {
			t.Fatalf("unexpected photo: %v", payload["photo"])
		}
		if payload["caption"] != "Hello world!" {
			t.Fatalf("caption was not formatted: %v", payload["caption"])
		}
		if _, ok := payload["parse_mode"]; ok {
			t.Fatal("parse_mode must not be sent")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer server.Close()

	pub := New(Config{Endpoint: server.URL + "/", HTTPClient: server.Client()})
	err := pub.SendPhoto(context.Background(), Photo{
		BotToken: "123:abc",
		ChatID:   " @channel ",
		PhotoURL: "https://img.example/p.png",
		Caption:  "Hello *world*!",
	})
	if err != nil {
		t.Fatalf("send photo: %v", err)
	}
}

func TestSendPhotoValidatesBeforeRequest(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	pub := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	tests := []struct {
		name  string
		photo Photo
		want  error
	}{
		{name: "token", photo: Photo{ChatID: "c", PhotoURL: "p"}, want: ErrMissingToken},
		{name: "chat", photo: Photo{BotToken: "t", PhotoURL: "p"}, want: ErrMissingChat},
		{name: "photo", photo: Photo{BotToken: "t", ChatID: "c"}, want: ErrMissingPhoto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := pub.SendPhoto(context.Background(), tt.photo); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestSendPhotoAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	pub := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	err := pub.SendPhoto(context.Background(), Photo{BotToken: "t", ChatID: "c", PhotoURL: "p"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Description != "Bad Request: chat not found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSendPhotoOKFalseWithSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Forbidden: bot is not a member"}`))
	}))
	defer server.Close()

	pub := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	err := pub.SendPhoto(context.Background(), Photo{BotToken: "t", ChatID: "c", PhotoURL: "p"})
	if err == nil || !strings.Contains(err.Error(), "bot is not a member") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendPhotoTransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	pub := New(Config{Endpoint: endpoint, HTTPClient: &http.Client{Timeout: time.Second}})
	err := pub.SendPhoto(context.Background(), Photo{BotToken: "secret-token", ChatID: "c", PhotoURL: "p"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("token leaked into error: %v", err)
	}
}

func TestSendPhotoHonoursRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	pub := New(Config{Endpoint: server.URL, HTTPClient: server.Client(), RatePerMinute: 1})
	photo := Photo{BotToken: "t", ChatID: "c", PhotoURL: "p"}
	if err := pub.SendPhoto(context.Background(), photo); err != nil {
		t.Fatalf("first send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pub.SendPhoto(ctx, photo); err == nil {
		t.Fatal("expected the second send to be rate limited")
	}
}
