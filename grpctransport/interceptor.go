// Package grpctransport runs the session middleware lifecycle inside gRPC
// server interceptors. The inbound metadata is the call's header multi-map;
// the new-session cookie is announced through the call's header metadata
// before the first response message. Handlers reach their call's middleware
// with FromContext.
package grpctransport

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/stevelorddremio/arrow/sessions"
)

type middlewareKey struct{}

// FromContext returns the call's session middleware, if the server was
// built with the interceptors from this package.
func FromContext(ctx context.Context) (*sessions.Middleware, bool) {
	mw, ok := ctx.Value(middlewareKey{}).(*sessions.Middleware)
	return mw, ok
}

// mdHeaders adapts inbound metadata to the read-only header view. MD.Get
// lowercases the lookup key, matching the wire representation.
type mdHeaders struct{ md metadata.MD }

var _ sessions.CallHeaders = mdHeaders{}

func (h mdHeaders) Values(name string) []string { return h.md.Get(name) }

// mdWriter collects response headers into outbound metadata.
type mdWriter struct{ md metadata.MD }

var _ sessions.HeaderWriter = mdWriter{}

func (w mdWriter) Add(name, value string) { w.md.Append(name, value) }

// UnaryInterceptor returns a grpc.UnaryServerInterceptor wiring the session
// lifecycle around every unary call.
func UnaryInterceptor(f *sessions.MiddlewareFactory) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		mw, err := f.StartCall(ctx, mdHeaders{md: md})
		if err != nil {
			return nil, toStatus(err)
		}

		resp, err := handler(context.WithValue(ctx, middlewareKey{}, mw), req)

		hdr := mdWriter{md: metadata.MD{}}
		mw.SendingHeaders(hdr)
		if len(hdr.md) > 0 {
			_ = grpc.SetHeader(ctx, hdr.md)
		}
		mw.CallCompleted(ctx, err)
		return resp, err
	}
}

// StreamInterceptor returns a grpc.StreamServerInterceptor wiring the
// session lifecycle around every streaming call. A session created during
// handling is announced in the stream's headers, which are flushed with the
// first sent message, so the cookie emission happens just before that send.
func StreamInterceptor(f *sessions.MiddlewareFactory) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		md, _ := metadata.FromIncomingContext(ctx)
		mw, err := f.StartCall(ctx, mdHeaders{md: md})
		if err != nil {
			return toStatus(err)
		}

		ws := &sessionStream{
			ServerStream: ss,
			ctx:          context.WithValue(ctx, middlewareKey{}, mw),
			mw:           mw,
		}
		err = handler(srv, ws)
		// If the handler never sent a message the headers are still open;
		// announce the cookie with the trailing status.
		ws.emitHeaders()
		mw.CallCompleted(ctx, err)
		return err
	}
}

// sessionStream wraps the server stream so the middleware's headers are
// emitted once, before the first response message.
type sessionStream struct {
	grpc.ServerStream
	ctx  context.Context
	mw   *sessions.Middleware
	once sync.Once
}

func (s *sessionStream) Context() context.Context { return s.ctx }

func (s *sessionStream) SendMsg(m any) error {
	s.emitHeaders()
	return s.ServerStream.SendMsg(m)
}

func (s *sessionStream) emitHeaders() {
	s.once.Do(func() {
		hdr := mdWriter{md: metadata.MD{}}
		s.mw.SendingHeaders(hdr)
		if len(hdr.md) > 0 {
			_ = s.ServerStream.SetHeader(hdr.md)
		}
	})
}

// toStatus maps session-layer errors onto gRPC statuses: client mistakes
// are InvalidArgument, a generator contract violation is Internal.
func toStatus(err error) error {
	switch {
	case errors.Is(err, sessions.ErrEmptyCookie),
		errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, sessions.ErrNoActiveSession):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, sessions.ErrIDCollision):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
