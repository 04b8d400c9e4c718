package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/workflow"
)

const maxBodyBytes = 1 << 20

type handler struct {
	session  *workflow.Session
	settings *settings.Store
	log      *zap.Logger
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ActionResponse reports the outcome of a state-changing request.
type ActionResponse struct {
	Notice   workflow.Notice `json:"notice"`
	Document workflow.State  `json:"document"`
}

type fetchRequest struct {
	URL string `json:"url"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

type captionRequest struct {
	Caption string `json:"caption"`
}

type settingsRequest struct {
	OpenRouterKey    *string `json:"openRouterKey"`
	TelegramBotToken *string `json:"telegramBotToken"`
	ChannelID        *string `json:"channelId"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) document(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *handler) fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if !h.decode(w, r, &req) {
		return
	}
	notice, err := h.session.Fetch(detach(r), req.URL)
	h.respond(w, notice, err)
}

func (h *handler) selectSegment(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "index is required", Field: "index"})
		return
	}
	h.respond(w, h.session.Select(*req.Index), nil)
}

func (h *handler) next(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.session.Next(), nil)
}

func (h *handler) previous(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.session.Previous(), nil)
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, "index")
	var (
		notice workflow.Notice
		err    error
	)
	if param == "active" {
		notice, err = h.session.Generate(detach(r))
	} else {
		index, convErr := strconv.Atoi(param)
		if convErr != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "segment index must be a number", Field: "index"})
			return
		}
		notice, err = h.session.GenerateAt(detach(r), index)
	}
	h.respond(w, notice, err)
}

func (h *handler) editCaption(w http.ResponseWriter, r *http.Request) {
	var req captionRequest
	if !h.decode(w, r, &req) {
		return
	}
	notice, err := h.session.EditCaption(req.Caption)
	h.respond(w, notice, err)
}

func (h *handler) publish(w http.ResponseWriter, r *http.Request) {
	notice, err := h.session.Publish(detach(r))
	h.respond(w, notice, err)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "settings storage is not configured"})
		return
	}
	writeJSON(w, http.StatusOK, h.settings.Get().Masked())
}

func (h *handler) putSettings(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "settings storage is not configured"})
		return
	}
	var req settingsRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.settings.Update(func(v *settings.Values) {
		if req.OpenRouterKey != nil {
			v.OpenRouterKey = *req.OpenRouterKey
		}
		if req.TelegramBotToken != nil {
			v.TelegramBotToken = *req.TelegramBotToken
		}
		if req.ChannelID != nil {
			v.ChannelID = *req.ChannelID
		}
	})
	if err != nil {
		h.log.Error("save settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to save settings"})
		return
	}
	writeJSON(w, http.StatusOK, h.settings.Get().Masked())
}

// detach keeps upstream calls running when the client goes away. The session
// timeouts still bound them.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug("invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *handler) respond(w http.ResponseWriter, notice workflow.Notice, err error) {
	if err != nil {
		status, body := errorStatus(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Notice: notice, Document: h.session.Snapshot()})
}

func errorStatus(err error) (int, ErrorResponse) {
	var verr *workflow.ValidationError
	switch {
	case errors.Is(err, workflow.ErrBusy):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field}
	case errors.Is(err, workflow.ErrFetch), errors.Is(err, workflow.ErrGeneration), errors.Is(err, workflow.ErrPublish):
		return http.StatusBadGateway, ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
