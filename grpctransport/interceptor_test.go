package grpctransport_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/stevelorddremio/arrow/grpctransport"
	"github.com/stevelorddremio/arrow/sessions"
	"github.com/stevelorddremio/arrow/sessions/memorystore"
)

// fakeTransportStream captures headers set through grpc.SetHeader.
type fakeTransportStream struct {
	mu sync.Mutex
	md metadata.MD
}

func (f *fakeTransportStream) Method() string { return "/flight.FlightService/DoAction" }

func (f *fakeTransportStream) SetHeader(md metadata.MD) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.md == nil {
		f.md = metadata.MD{}
	}
	for k, v := range md {
		f.md[k] = append(f.md[k], v...)
	}
	return nil
}

func (f *fakeTransportStream) SendHeader(md metadata.MD) error { return f.SetHeader(md) }
func (f *fakeTransportStream) SetTrailer(metadata.MD) error    { return nil }

func (f *fakeTransportStream) header() metadata.MD {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.md
}

func unaryCtx(md metadata.MD) (context.Context, *fakeTransportStream) {
	ts := &fakeTransportStream{}
	ctx := metadata.NewIncomingContext(context.Background(), md)
	return grpc.NewContextWithServerTransportStream(ctx, ts), ts
}

func TestUnaryNewSessionAnnounced(t *testing.T) {
	store := memorystore.New()
	intercept := grpctransport.UnaryInterceptor(sessions.NewMiddlewareFactory(store))
	ctx, ts := unaryCtx(metadata.MD{})

	var sessionID string
	resp, err := intercept(ctx, "req", &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		mw, ok := grpctransport.FromContext(ctx)
		if !ok {
			t.Fatal("middleware missing from handler context")
		}
		if mw.HasSession() {
			t.Fatal("cookie-less call arrived bound")
		}
		if _, err := mw.GetSession(ctx); err != nil {
			return nil, err
		}
		sessionID = mw.SessionID()
		return "resp", nil
	})
	if err != nil {
		t.Fatalf("intercepted call: %v", err)
	}
	if resp != "resp" {
		t.Fatalf("resp = %v", resp)
	}

	got := ts.header().Get(sessions.SetCookieHeader)
	want := sessions.SessionCookieName + "=" + sessionID
	if len(got) != 1 || got[0] != want {
		t.Fatalf("set-cookie header = %v, want [%s]", got, want)
	}
}

func TestUnaryExistingSessionNotReannounced(t *testing.T) {
	store := memorystore.New()
	id, _, err := store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	intercept := grpctransport.UnaryInterceptor(sessions.NewMiddlewareFactory(store))
	ctx, ts := unaryCtx(metadata.Pairs("cookie", sessions.SessionCookieName+"="+id))

	_, err = intercept(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, _ any) (any, error) {
		mw, _ := grpctransport.FromContext(ctx)
		if mw.SessionID() != id {
			t.Fatalf("bound to %q, want %q", mw.SessionID(), id)
		}
		_, err := mw.GetSession(ctx)
		return nil, err
	})
	if err != nil {
		t.Fatalf("intercepted call: %v", err)
	}
	if got := ts.header().Get(sessions.SetCookieHeader); len(got) != 0 {
		t.Fatalf("existing session re-announced: %v", got)
	}
}

func TestUnaryInvalidCookieIsInvalidArgument(t *testing.T) {
	intercept := grpctransport.UnaryInterceptor(sessions.NewMiddlewareFactory(memorystore.New()))

	cases := []struct {
		name   string
		cookie string
		substr string
	}{
		{"UnknownSession", sessions.SessionCookieName + "=doesnotexist", "invalid or expired"},
		{"EmptyValue", sessions.SessionCookieName + "=", "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := unaryCtx(metadata.Pairs("cookie", tc.cookie))
			_, err := intercept(ctx, nil, &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
				t.Fatal("handler ran on a rejected call")
				return nil, nil
			})
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
			}
			if !strings.Contains(err.Error(), tc.substr) {
				t.Fatalf("error = %v", err)
			}
		})
	}
}

// fakeServerStream records header mutations and sent messages so the test
// can assert ordering.
type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context

	mu        sync.Mutex
	md        metadata.MD
	sent      []any
	headerSet bool
	setBefore bool // header was set before the first SendMsg
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func (f *fakeServerStream) SetHeader(md metadata.MD) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.md == nil {
		f.md = metadata.MD{}
	}
	for k, v := range md {
		f.md[k] = append(f.md[k], v...)
	}
	f.headerSet = true
	return nil
}

func (f *fakeServerStream) SendMsg(m any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 && f.headerSet {
		f.setBefore = true
	}
	f.sent = append(f.sent, m)
	return nil
}

func TestStreamEmitsHeaderBeforeFirstMessage(t *testing.T) {
	store := memorystore.New()
	intercept := grpctransport.StreamInterceptor(sessions.NewMiddlewareFactory(store))
	ss := &fakeServerStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.MD{})}

	err := intercept(nil, ss, &grpc.StreamServerInfo{}, func(_ any, stream grpc.ServerStream) error {
		mw, ok := grpctransport.FromContext(stream.Context())
		if !ok {
			t.Fatal("middleware missing from stream context")
		}
		if _, err := mw.GetSession(stream.Context()); err != nil {
			return err
		}
		return stream.SendMsg("chunk")
	})
	if err != nil {
		t.Fatalf("intercepted stream: %v", err)
	}

	if !ss.setBefore {
		t.Fatal("set-cookie header was not in place before the first message")
	}
	if got := ss.md.Get(sessions.SetCookieHeader); len(got) != 1 {
		t.Fatalf("set-cookie header = %v", got)
	}
}

func TestStreamWithoutSendStillAnnounces(t *testing.T) {
	store := memorystore.New()
	intercept := grpctransport.StreamInterceptor(sessions.NewMiddlewareFactory(store))
	ss := &fakeServerStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.MD{})}

	err := intercept(nil, ss, &grpc.StreamServerInfo{}, func(_ any, stream grpc.ServerStream) error {
		mw, _ := grpctransport.FromContext(stream.Context())
		_, err := mw.GetSession(stream.Context())
		return err
	})
	if err != nil {
		t.Fatalf("intercepted stream: %v", err)
	}
	if got := ss.md.Get(sessions.SetCookieHeader); len(got) != 1 {
		t.Fatalf("set-cookie header = %v", got)
	}
}
