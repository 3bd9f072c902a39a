package ingress

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
	"github.com/dmitrymomot/renewalkit/pkg/webhook"
)

// Handler serves POST /{signal}.
type Handler struct {
	subs    subscription.Service
	hooks   *hooks.Dispatcher
	logger  *slog.Logger
	maxBody int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBodySize limits the accepted body size. Default 64KB.
func WithMaxBodySize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler returns a handler loading objects from subs and dispatching on d.
func NewHandler(subs subscription.Service, d *hooks.Dispatcher, opts ...Option) *Handler {
	h := &Handler{subs: subs, hooks: d, logger: slog.Default(), maxBody: 64 << 10}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns a router serving POST /{signal}. Mount it behind
// webhook.Verify.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{signal}", h.handleSignal)
	return r
}

type response struct {
	Signal     string `json:"signal,omitempty"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) handleSignal(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "signal")
	ctx := r.Context()
	id := webhook.DeliveryID(ctx)
	if id != "" {
		ctx = logger.ContextWithDeliveryID(ctx, id)
	}

	decode, ok := decoders[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, response{Signal: name, DeliveryID: id, Error: ErrUnknownSignal.Error()})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Signal: name, DeliveryID: id, Error: ErrInvalidBody.Error()})
		return
	}

	payload, err := decode(ctx, h.subs, body)
	switch {
	case errors.Is(err, ErrInvalidBody):
		writeJSON(w, http.StatusBadRequest, response{Signal: name, DeliveryID: id, Error: err.Error()})
		return
	case errors.Is(err, ErrObjectNotFound):
		writeJSON(w, http.StatusNotFound, response{Signal: name, DeliveryID: id, Error: err.Error()})
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to load signal objects", logger.Signal(name), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, response{Signal: name, DeliveryID: id, Error: http.StatusText(http.StatusInternalServerError)})
		return
	}

	if err := h.hooks.Do(ctx, name, payload); err != nil {
		h.logger.ErrorContext(ctx, "signal handlers failed", logger.Signal(name), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, response{Signal: name, DeliveryID: id, Error: http.StatusText(http.StatusInternalServerError)})
		return
	}

	h.logger.InfoContext(ctx, "signal dispatched", logger.Signal(name))
	writeJSON(w, http.StatusAccepted, response{Signal: name, DeliveryID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
