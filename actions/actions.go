// Package actions executes the session management action types against a
// call's middleware handle. Transports decode the wire envelope, dispatch
// here, and encode the result; the handler itself is transport-agnostic.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stevelorddremio/arrow/sessions"
	"github.com/stevelorddremio/arrow/wire"
)

// ErrInvalidRequest indicates an action body that could not be decoded.
// Transports classify it as a client error.
var ErrInvalidRequest = errors.New("invalid session action request")

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the slog logger. If not provided, logs are discarded.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// Handler executes decoded session actions. Safe for concurrent use.
type Handler struct {
	log *slog.Logger
}

// NewHandler builds an action handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Dispatch decodes act's body and runs the matching handler. Unknown action
// types return wire.ErrUnknownAction; body decode failures are returned
// verbatim so transports can classify them as client errors.
func (h *Handler) Dispatch(ctx context.Context, mw *sessions.Middleware, act *wire.Action) (*wire.Result, error) {
	switch act.Type {
	case wire.ActionSetSessionOptions:
		var req wire.SetSessionOptionsRequest
		if err := json.Unmarshal(act.Body, &req); err != nil {
			return nil, fmt.Errorf("%w: decode %s body: %v", ErrInvalidRequest, act.Type, err)
		}
		res, err := h.SetSessionOptions(ctx, mw, &req)
		if err != nil {
			return nil, err
		}
		return encodeResult(res)
	case wire.ActionGetSessionOptions:
		res, err := h.GetSessionOptions(ctx, mw, &wire.GetSessionOptionsRequest{})
		if err != nil {
			return nil, err
		}
		return encodeResult(res)
	case wire.ActionCloseSession:
		res, err := h.CloseSession(ctx, mw, &wire.CloseSessionRequest{})
		if err != nil {
			return nil, err
		}
		return encodeResult(res)
	default:
		return nil, fmt.Errorf("%w: %q", wire.ErrUnknownAction, act.Type)
	}
}

func encodeResult(v any) (*wire.Result, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &wire.Result{Body: body}, nil
}

// SetSessionOptions applies each requested assignment independently,
// lazily creating a session for the call if it has none yet. A bad key
// never blocks the others; partial success is a normal outcome reported
// through the per-key statuses.
func (h *Handler) SetSessionOptions(ctx context.Context, mw *sessions.Middleware, req *wire.SetSessionOptionsRequest) (*wire.SetSessionOptionsResult, error) {
	sess, err := mw.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]wire.SetOptionStatus, len(req.SessionOptions))
	for name, val := range req.SessionOptions {
		if name == "" {
			statuses[name] = wire.SetOptionInvalidName
			continue
		}
		sess.SetOption(name, val.V)
		statuses[name] = wire.SetOptionOK
	}

	h.log.InfoContext(ctx, "session.options.set",
		slog.String("session_id", mw.SessionID()),
		slog.Int("count", len(statuses)))
	return &wire.SetSessionOptionsResult{Statuses: statuses}, nil
}

// GetSessionOptions returns the full option snapshot of the call's session.
// A call with no bound session is an invalid-argument error rather than an
// empty result.
func (h *Handler) GetSessionOptions(ctx context.Context, mw *sessions.Middleware, _ *wire.GetSessionOptionsRequest) (*wire.GetSessionOptionsResult, error) {
	if !mw.HasSession() {
		return nil, sessions.ErrNoActiveSession
	}
	sess, err := mw.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	return &wire.GetSessionOptionsResult{
		SessionOptions: wire.OptionsToWire(sess.Options()),
	}, nil
}

// CloseSession discards the call's session from the store.
func (h *Handler) CloseSession(ctx context.Context, mw *sessions.Middleware, _ *wire.CloseSessionRequest) (*wire.CloseSessionResult, error) {
	if err := mw.CloseSession(ctx); err != nil {
		return nil, err
	}
	return &wire.CloseSessionResult{Status: wire.CloseSessionClosed}, nil
}
