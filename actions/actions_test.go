package actions_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stevelorddremio/arrow/actions"
	"github.com/stevelorddremio/arrow/sessions"
	"github.com/stevelorddremio/arrow/sessions/memorystore"
	"github.com/stevelorddremio/arrow/wire"
)

func startCall(t *testing.T, store sessions.Store, headers http.Header) *sessions.Middleware {
	t.Helper()
	f := sessions.NewMiddlewareFactory(store)
	mw, err := f.StartCall(context.Background(), headers)
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	return mw
}

func TestSetSessionOptionsCreatesSessionAndReportsPerKey(t *testing.T) {
	store := memorystore.New()
	mw := startCall(t, store, http.Header{})
	h := actions.NewHandler()

	req := &wire.SetSessionOptionsRequest{
		SessionOptions: map[string]wire.Value{
			"catalog": {V: sessions.StringValue("main")},
			"":        {V: sessions.BoolValue(true)},
		},
	}
	res, err := h.SetSessionOptions(context.Background(), mw, req)
	if err != nil {
		t.Fatalf("SetSessionOptions: %v", err)
	}

	if got := res.Statuses["catalog"]; got != wire.SetOptionOK {
		t.Fatalf("catalog status = %q, want ok", got)
	}
	if got := res.Statuses[""]; got != wire.SetOptionInvalidName {
		t.Fatalf("empty-name status = %q, want invalid_name", got)
	}
	if !mw.HasSession() {
		t.Fatal("SetSessionOptions did not bind a session")
	}

	// The invalid key must not have blocked the good one.
	sess, err := store.Lookup(context.Background(), mw.SessionID())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v, ok := sess.GetOption("catalog"); !ok || v != sessions.StringValue("main") {
		t.Fatalf("catalog option = (%v, %v)", v, ok)
	}
}

func TestGetSessionOptionsRequiresSession(t *testing.T) {
	mw := startCall(t, memorystore.New(), http.Header{})
	h := actions.NewHandler()

	_, err := h.GetSessionOptions(context.Background(), mw, &wire.GetSessionOptionsRequest{})
	if !errors.Is(err, sessions.ErrNoActiveSession) {
		t.Fatalf("GetSessionOptions returned %v, want ErrNoActiveSession", err)
	}
}

func TestGetSessionOptionsReturnsSnapshot(t *testing.T) {
	store := memorystore.New()
	ctx := context.Background()
	id, sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	sess.SetOption("threads", sessions.Int32Value(4))

	hdr := http.Header{}
	hdr.Add("Cookie", sessions.SessionCookieName+"="+id)
	mw := startCall(t, store, hdr)
	h := actions.NewHandler()

	res, err := h.GetSessionOptions(ctx, mw, &wire.GetSessionOptionsRequest{})
	if err != nil {
		t.Fatalf("GetSessionOptions: %v", err)
	}
	if got := res.SessionOptions["threads"].V; got != sessions.Int32Value(4) {
		t.Fatalf("threads = %#v", got)
	}
}

func TestCloseSession(t *testing.T) {
	store := memorystore.New()
	ctx := context.Background()
	mw := startCall(t, store, http.Header{})
	h := actions.NewHandler()

	if _, err := h.CloseSession(ctx, mw, &wire.CloseSessionRequest{}); !errors.Is(err, sessions.ErrNoActiveSession) {
		t.Fatalf("CloseSession while unbound returned %v, want ErrNoActiveSession", err)
	}

	if _, err := mw.GetSession(ctx); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	res, err := h.CloseSession(ctx, mw, &wire.CloseSessionRequest{})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if res.Status != wire.CloseSessionClosed {
		t.Fatalf("status = %q, want closed", res.Status)
	}
	if _, err := store.Lookup(ctx, mw.SessionID()); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("session survived close: %v", err)
	}
}

func TestDispatch(t *testing.T) {
	store := memorystore.New()
	ctx := context.Background()
	h := actions.NewHandler()

	mw := startCall(t, store, http.Header{})
	res, err := h.Dispatch(ctx, mw, &wire.Action{
		Type: wire.ActionSetSessionOptions,
		Body: json.RawMessage(`{"sessionOptions":{"catalog":{"stringValue":"main"}}}`),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	var set wire.SetSessionOptionsResult
	if err := json.Unmarshal(res.Body, &set); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if set.Statuses["catalog"] != wire.SetOptionOK {
		t.Fatalf("statuses = %#v", set.Statuses)
	}

	if _, err := h.Dispatch(ctx, mw, &wire.Action{Type: "Nonsense"}); !errors.Is(err, wire.ErrUnknownAction) {
		t.Fatalf("unknown action returned %v, want ErrUnknownAction", err)
	}

	_, err = h.Dispatch(ctx, mw, &wire.Action{
		Type: wire.ActionSetSessionOptions,
		Body: json.RawMessage(`{"sessionOptions":{"bad":{}}}`),
	})
	if !errors.Is(err, actions.ErrInvalidRequest) {
		t.Fatalf("bad body returned %v, want ErrInvalidRequest", err)
	}
}
