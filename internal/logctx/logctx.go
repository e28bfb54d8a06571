// Package logctx enriches slog records with per-call data carried in the
// context, so transport code can log with bare event names and still get
// request and session attribution.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and appends request/session groups
// from the context to every record.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("user_agent", rd.UserAgent),
			slog.String("action", rd.Action),
		))
	}

	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
			slog.Bool("new", sd.New),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type requestDataKey struct{}

// RequestData identifies one inbound call. Action is filled in once the
// envelope has been decoded.
type RequestData struct {
	RequestID  string
	RemoteAddr string
	UserAgent  string
	Action     string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type sessionDataKey struct{}

// SessionData identifies the session a call resolved to. New reports
// whether this call created it.
type SessionData struct {
	SessionID string
	New       bool
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}
