// Package storetest provides a reusable conformance suite for
// sessions.Store implementations. Store authors run RunStoreTests against a
// factory for their implementation and get the registry, option-map, and
// concurrency contracts checked in one place.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stevelorddremio/arrow/sessions"
)

// StoreFactory creates a fresh Store instance for testing.
type StoreFactory func(t *testing.T) sessions.Store

// RunStoreTests runs the complete Store test suite against the provided
// factory.
func RunStoreTests(t *testing.T, factory StoreFactory) {
	t.Run("Create_ConcurrentIdentifiersAreUnique", func(t *testing.T) { testConcurrentCreateUnique(t, factory) })
	t.Run("Create_SessionStartsEmpty", func(t *testing.T) { testSessionStartsEmpty(t, factory) })
	t.Run("Lookup_ReturnsSameSession", func(t *testing.T) { testLookupReturnsSameSession(t, factory) })
	t.Run("Lookup_UnknownIdentifierMisses", func(t *testing.T) { testLookupMiss(t, factory) })
	t.Run("Options_RoundTripAllKinds", func(t *testing.T) { testOptionRoundTrip(t, factory) })
	t.Run("Options_OverwriteAndErase", func(t *testing.T) { testOverwriteAndErase(t, factory) })
	t.Run("Options_ConcurrentWritersKeepAllKeys", func(t *testing.T) { testConcurrentWriters(t, factory) })
	t.Run("Close_RemovesSession", func(t *testing.T) { testCloseRemoves(t, factory) })
	t.Run("Close_UnknownIdentifierMisses", func(t *testing.T) { testCloseMiss(t, factory) })
}

func testConcurrentCreateUnique(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	const n = 64
	var (
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
		wg  sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id, sess, err := store.CreateSession(ctx)
			if err != nil {
				t.Errorf("CreateSession: %v", err)
				return
			}
			if id == "" || sess == nil {
				t.Errorf("CreateSession returned id=%q sess=%v", id, sess)
				return
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != n {
		t.Fatalf("expected %d distinct identifiers, got %d", n, len(ids))
	}
}

func testSessionStartsEmpty(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, sess, err := store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if opts := sess.Options(); len(opts) != 0 {
		t.Fatalf("fresh session has %d options, want 0", len(opts))
	}
	if _, ok := sess.GetOption("anything"); ok {
		t.Fatal("GetOption on a fresh session reported a value")
	}
}

func testLookupReturnsSameSession(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	id, sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	sess.SetOption("catalog", sessions.StringValue("main"))

	got, err := store.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", id, err)
	}
	v, ok := got.GetOption("catalog")
	if !ok || v != sessions.StringValue("main") {
		t.Fatalf("looked-up session returned (%v, %v), want (main, true)", v, ok)
	}
}

func testLookupMiss(t *testing.T, factory StoreFactory) {
	store := factory(t)

	if _, err := store.Lookup(context.Background(), "doesnotexist"); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("Lookup miss returned %v, want ErrSessionNotFound", err)
	}
}

func testOptionRoundTrip(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, sess, err := store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	values := []sessions.OptionValue{
		sessions.StringValue("spark"),
		sessions.BoolValue(true),
		sessions.Int32Value(-7),
		sessions.Int64Value(1 << 40),
		sessions.Float32Value(0.5),
		sessions.Float64Value(3.14159),
		sessions.StringListValue{"a", "b", "c"},
		sessions.StringListValue{},
	}
	for i, want := range values {
		name := fmt.Sprintf("opt-%d", i)
		sess.SetOption(name, want)
		got, ok := sess.GetOption(name)
		if !ok {
			t.Fatalf("GetOption(%q) missing after SetOption", name)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("GetOption(%q) = %#v, want %#v", name, got, want)
		}
	}
}

func testOverwriteAndErase(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, sess, err := store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess.SetOption("lang", sessions.StringValue("sql"))
	sess.SetOption("lang", sessions.Int64Value(42))
	if v, _ := sess.GetOption("lang"); v != sessions.Int64Value(42) {
		t.Fatalf("overwrite: got %#v, want Int64Value(42)", v)
	}

	sess.EraseOption("lang")
	if _, ok := sess.GetOption("lang"); ok {
		t.Fatal("option still present after EraseOption")
	}

	// Erasing an absent name is a no-op, not an error.
	sess.EraseOption("lang")
}

func testConcurrentWriters(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	id, _, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Two calls bound to the same identifier write disjoint keys; neither
	// update may be lost.
	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			sess, err := store.Lookup(ctx, id)
			if err != nil {
				t.Errorf("Lookup: %v", err)
				return
			}
			sess.SetOption(fmt.Sprintf("key-%d", i), sessions.Int32Value(int32(i)))
		}(i)
	}
	wg.Wait()

	sess, err := store.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	opts := sess.Options()
	if len(opts) != n {
		t.Fatalf("expected %d options after concurrent writes, got %d", n, len(opts))
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("key-%d", i)
		if v, ok := opts[name]; !ok || v != sessions.Int32Value(int32(i)) {
			t.Fatalf("option %q = (%#v, %v), want (Int32Value(%d), true)", name, v, ok, i)
		}
	}
}

func testCloseRemoves(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	id, _, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.CloseSession(ctx, id); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if _, err := store.Lookup(ctx, id); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("Lookup after close returned %v, want ErrSessionNotFound", err)
	}
}

func testCloseMiss(t *testing.T, factory StoreFactory) {
	store := factory(t)

	if err := store.CloseSession(context.Background(), "doesnotexist"); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("CloseSession miss returned %v, want ErrSessionNotFound", err)
	}
}
