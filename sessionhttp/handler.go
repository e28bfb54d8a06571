package sessionhttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
	"github.com/stevelorddremio/arrow/actions"
	"github.com/stevelorddremio/arrow/internal/logctx"
	"github.com/stevelorddremio/arrow/metrics"
	"github.com/stevelorddremio/arrow/sessions"
	"github.com/stevelorddremio/arrow/wire"
)

var _ http.Handler = (*Handler)(nil)

var jsonMediaType = contenttype.NewMediaType("application/json")

// writeJSONError emits a minimal JSON body for transport-level rejections.
// Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger      *slog.Logger
	cookieName  string
	metrics     *metrics.Metrics
	onCompleted sessions.CallCompletedFunc
}

// WithLogger sets the slog logger used by the handler. If not provided,
// logs are discarded.
func WithLogger(log *slog.Logger) Option {
	return func(c *newConfig) { c.logger = log }
}

// WithCookieName overrides the session cookie key.
func WithCookieName(name string) Option {
	return func(c *newConfig) { c.cookieName = name }
}

// WithMetrics instruments the underlying middleware factory.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *newConfig) { c.metrics = m }
}

// WithCallCompleted installs a per-call completion hook on the underlying
// middleware factory.
func WithCallCompleted(fn sessions.CallCompletedFunc) Option {
	return func(c *newConfig) { c.onCompleted = fn }
}

// Handler serves the session action protocol at whatever path it is
// mounted on. Only POST with an application/json body is accepted.
type Handler struct {
	log      *slog.Logger
	factory  *sessions.MiddlewareFactory
	dispatch *actions.Handler
}

// New builds a Handler over the given store.
func New(store sessions.Store, opts ...Option) *Handler {
	cfg := &newConfig{
		logger:     slog.New(slog.DiscardHandler),
		cookieName: sessions.SessionCookieName,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	log := slog.New(logctx.Handler{Handler: cfg.logger.Handler()})

	fopts := []sessions.FactoryOption{
		sessions.WithCookieName(cfg.cookieName),
		sessions.WithLogger(log),
	}
	if cfg.metrics != nil {
		fopts = append(fopts, sessions.WithMetrics(cfg.metrics))
	}
	if cfg.onCompleted != nil {
		fopts = append(fopts, sessions.WithCallCompleted(cfg.onCompleted))
	}

	return &Handler{
		log:      log,
		factory:  sessions.NewMiddlewareFactory(store, fopts...),
		dispatch: actions.NewHandler(actions.WithLogger(log)),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqData := &logctx.RequestData{
		RequestID:  uuid.NewString(),
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	ctx := logctx.WithRequestData(r.Context(), reqData)
	h.log.InfoContext(ctx, "http.call.start")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	mw, err := h.factory.StartCall(ctx, r.Header)
	if err != nil {
		// The call is rejected before handler logic; no middleware exists,
		// so no lifecycle phases run for it.
		writeJSONError(w, statusForError(err), err.Error())
		h.log.InfoContext(ctx, "call.start.reject", slog.String("err", err.Error()))
		return
	}

	var act wire.Action
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		h.finish(ctx, w, mw, http.StatusBadRequest, "invalid action envelope: "+err.Error(), err)
		return
	}
	reqData.Action = act.Type

	wasBound := mw.HasSession()
	res, actErr := h.dispatch.Dispatch(ctx, mw, &act)

	if mw.HasSession() {
		ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
			SessionID: mw.SessionID(),
			New:       !wasBound,
		})
	}

	if actErr != nil {
		h.finish(ctx, w, mw, statusForError(actErr), actErr.Error(), actErr)
		return
	}

	// Response headers for the call, including the new-session cookie when
	// one was created, must be in place before the status line is written.
	mw.SendingHeaders(w.Header())
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.log.ErrorContext(ctx, "http.call.write.fail", slog.String("err", err.Error()))
	}
	mw.CallCompleted(ctx, nil)
	h.log.InfoContext(ctx, "http.call.ok", slog.Duration("dur", time.Since(start)))
}

// finish completes a failed call: headers, JSON error body, completion
// hook. Runs the same lifecycle tail as the success path.
func (h *Handler) finish(ctx context.Context, w http.ResponseWriter, mw *sessions.Middleware, status int, msg string, callErr error) {
	mw.SendingHeaders(w.Header())
	writeJSONError(w, status, msg)
	mw.CallCompleted(ctx, callErr)
	h.log.InfoContext(ctx, "http.call.fail", slog.Int("status", status), slog.String("err", msg))
}

// statusForError maps session-layer errors onto HTTP statuses. Invalid
// input from the client is 400; a generator contract violation is the only
// 500 the layer itself produces.
func statusForError(err error) int {
	switch {
	case errors.Is(err, sessions.ErrEmptyCookie),
		errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, sessions.ErrNoActiveSession),
		errors.Is(err, wire.ErrUnknownAction),
		errors.Is(err, actions.ErrInvalidRequest),
		errors.Is(err, wire.ErrUnsetValue),
		errors.Is(err, wire.ErrAmbiguousValue):
		return http.StatusBadRequest
	case errors.Is(err, sessions.ErrIDCollision):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
