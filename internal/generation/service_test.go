package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

// fakeBackend replies with the result of reply for each call, numbered from 1.
type fakeBackend struct {
	mu    sync.Mutex
	calls int
	reply func(call int) (generation.Completion, error)
}

func (f *fakeBackend) Complete(_ context.Context, _ generation.Request) (generation.Completion, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.reply(call)
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func replyText(text string) func(int) (generation.Completion, error) {
	return func(int) (generation.Completion, error) {
		return generation.Completion{Text: text, InputTokens: 100, OutputTokens: 50}, nil
	}
}

func replyErr(err error) func(int) (generation.Completion, error) {
	return func(int) (generation.Completion, error) {
		return generation.Completion{}, err
	}
}

var testRequest = generation.Request{System: "You plan workouts.", User: "Plan my week."}

func newService(t *testing.T, backend generation.Backend, cache generation.Cache) *generation.Service {
	t.Helper()
	return generation.NewService(testhelpers.NewLogger(testhelpers.NewWriter(t)), backend, cache, generation.Config{
		MaxAttempts: 3,
		BackoffUnit: time.Millisecond,
	})
}

func asFailure(t *testing.T, err error) *generation.Failure {
	t.Helper()
	var f *generation.Failure
	if !errors.As(err, &f) {
		t.Fatalf("error = %v (%T), want *generation.Failure", err, err)
	}
	return f
}

func TestService_CacheIdempotence(t *testing.T) {
	backend := &fakeBackend{reply: replyText(`<output>{"workout_plan": {"strategy": "walk"}}</output>`)}
	cache := generation.NewMemoryCache()
	svc := newService(t, backend, cache)

	first, err := svc.Send(t.Context(), testRequest)
	if err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	second, err := svc.Send(t.Context(), testRequest)
	if err != nil {
		t.Fatalf("second Send() error = %v", err)
	}

	if got := backend.Calls(); got != 1 {
		t.Errorf("backend called %d times, want 1", got)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached payload differs (-first +second):\n%s", diff)
	}
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1", cache.Len())
	}

	// Mutating a returned payload must not leak into the cache.
	delete(first, "workout_plan")
	third, _ := svc.Send(t.Context(), testRequest)
	if !third.Has("workout_plan") {
		t.Error("cached payload was modified through a returned copy")
	}
}

func TestService_WithoutCache(t *testing.T) {
	backend := &fakeBackend{reply: replyText(`{"a": 1}`)}
	cache := generation.NewMemoryCache()
	svc := newService(t, backend, cache)

	for range 2 {
		if _, err := svc.Send(t.Context(), testRequest, generation.WithoutCache()); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if got := backend.Calls(); got != 2 {
		t.Errorf("backend called %d times, want 2", got)
	}
	if cache.Len() != 0 {
		t.Errorf("cache.Len() = %d, want 0 when the cache is bypassed", cache.Len())
	}
}

func TestService_DifferentPromptsAreCachedSeparately(t *testing.T) {
	backend := &fakeBackend{reply: replyText(`{"a": 1}`)}
	svc := newService(t, backend, generation.NewMemoryCache())

	for _, req := range []generation.Request{
		{System: "ab", User: "c"},
		{System: "a", User: "bc"},
	} {
		if _, err := svc.Send(t.Context(), req); err != nil {
			t.Fatal(err)
		}
	}
	if got := backend.Calls(); got != 2 {
		t.Errorf("backend called %d times, want 2", got)
	}
}

func TestService_Retries(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantKind     generation.Kind
		wantAttempts int
	}{
		{
			name:         "transient is retried until attempts run out",
			err:          &generation.BackendError{Kind: generation.KindTransient, StatusCode: 503, Err: errors.New("unavailable")},
			wantKind:     generation.KindTransient,
			wantAttempts: 3,
		},
		{
			name:         "connection is retried until attempts run out",
			err:          &generation.BackendError{Kind: generation.KindConnection, StatusCode: 0, Err: errors.New("reset")},
			wantKind:     generation.KindConnection,
			wantAttempts: 3,
		},
		{
			name:         "auth fails at once",
			err:          &generation.BackendError{Kind: generation.KindAuth, StatusCode: 401, Err: errors.New("bad key")},
			wantKind:     generation.KindAuth,
			wantAttempts: 1,
		},
		{
			name:         "unknown backend error fails at once",
			err:          &generation.BackendError{Kind: generation.KindUnknown, StatusCode: 302, Err: errors.New("moved")},
			wantKind:     generation.KindUnknown,
			wantAttempts: 1,
		},
		{
			name:         "unclassified error fails at once",
			err:          errors.New("something odd"),
			wantKind:     generation.KindUnknown,
			wantAttempts: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{reply: replyErr(tt.err)}
			cache := generation.NewMemoryCache()
			svc := newService(t, backend, cache)

			_, err := svc.Send(t.Context(), testRequest)
			f := asFailure(t, err)
			if f.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", f.Kind, tt.wantKind)
			}
			if f.Attempts != tt.wantAttempts {
				t.Errorf("Attempts = %d, want %d", f.Attempts, tt.wantAttempts)
			}
			if got := backend.Calls(); got != tt.wantAttempts {
				t.Errorf("backend called %d times, want %d", got, tt.wantAttempts)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("failure does not wrap the backend error %v", tt.err)
			}
			if f.Message == "" {
				t.Error("failure has no message")
			}
			if cache.Len() != 0 {
				t.Error("failure was cached")
			}
		})
	}
}

func TestService_Backoff(t *testing.T) {
	backend := &fakeBackend{reply: replyErr(&generation.BackendError{
		Kind: generation.KindTransient, StatusCode: 429, Err: errors.New("slow down"),
	})}
	svc := generation.NewService(testhelpers.NewLogger(testhelpers.NewWriter(t)), backend, nil, generation.Config{
		MaxAttempts: 3,
		BackoffUnit: 10 * time.Millisecond,
	})

	start := time.Now()
	_, _ = svc.Send(t.Context(), testRequest)
	// 1 unit after the first attempt and 2 after the second, nothing after the last.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Send() took %v, want at least 30ms of backoff", elapsed)
	}
}

func TestService_RecoversAfterTransientError(t *testing.T) {
	backend := &fakeBackend{reply: func(call int) (generation.Completion, error) {
		if call == 1 {
			return generation.Completion{}, &generation.BackendError{
				Kind: generation.KindConnection, StatusCode: 0, Err: errors.New("reset"),
			}
		}
		return generation.Completion{Text: `{"ok": true}`, InputTokens: 1, OutputTokens: 1}, nil
	}}
	svc := newService(t, backend, generation.NewMemoryCache())

	p, err := svc.Send(t.Context(), testRequest)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(p["ok"]) != "true" {
		t.Errorf(`payload["ok"] = %s, want true`, p["ok"])
	}
	if got := backend.Calls(); got != 2 {
		t.Errorf("backend called %d times, want 2", got)
	}
}

func TestService_ParseFailureIsNotCached(t *testing.T) {
	const reply = "Sorry, I can't help with that."
	backend := &fakeBackend{reply: replyText(reply)}
	svc := newService(t, backend, generation.NewMemoryCache())

	for range 2 {
		_, err := svc.Send(t.Context(), testRequest)
		f := asFailure(t, err)
		if f.Kind != generation.KindParse {
			t.Errorf("Kind = %q, want %q", f.Kind, generation.KindParse)
		}
		if f.RawText != reply {
			t.Errorf("RawText = %q, want %q", f.RawText, reply)
		}
		if f.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", f.Attempts)
		}
	}
	if got := backend.Calls(); got != 2 {
		t.Errorf("backend called %d times, want 2", got)
	}
}

func TestService_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	backend := &fakeBackend{reply: func(int) (generation.Completion, error) {
		cancel()
		return generation.Completion{}, &generation.BackendError{
			Kind: generation.KindTransient, StatusCode: 500, Err: errors.New("boom"),
		}
	}}
	svc := generation.NewService(testhelpers.NewLogger(testhelpers.NewWriter(t)), backend, nil, generation.Config{
		MaxAttempts: 3,
		BackoffUnit: time.Hour,
	})

	_, err := svc.Send(ctx, testRequest)
	f := asFailure(t, err)
	if f.Kind != generation.KindConnection {
		t.Errorf("Kind = %q, want %q", f.Kind, generation.KindConnection)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want it to wrap %v", err, context.Canceled)
	}
	if got := backend.Calls(); got != 1 {
		t.Errorf("backend called %d times, want 1", got)
	}
}

func TestService_BackendPanic(t *testing.T) {
	backend := &fakeBackend{reply: func(int) (generation.Completion, error) {
		panic("backend exploded")
	}}
	svc := newService(t, backend, nil)

	_, err := svc.Send(t.Context(), testRequest)
	if f := asFailure(t, err); f.Kind != generation.KindUnknown {
		t.Errorf("Kind = %q, want %q", f.Kind, generation.KindUnknown)
	}
}

func TestService_ConcurrentSends(t *testing.T) {
	backend := &fakeBackend{reply: replyText(`{"nutrition_plan": {}}`)}
	cache := generation.NewMemoryCache()
	svc := newService(t, backend, cache)

	var wg sync.WaitGroup
	payloads := make([]generation.Payload, 8)
	for i := range payloads {
		wg.Go(func() {
			p, err := svc.Send(t.Context(), testRequest)
			if err != nil {
				t.Errorf("Send() error = %v", err)
			}
			payloads[i] = p
		})
	}
	wg.Wait()

	for i, p := range payloads {
		if diff := cmp.Diff(payloads[0], p); diff != "" {
			t.Errorf("payload %d differs (-first +got):\n%s", i, diff)
		}
	}
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1", cache.Len())
	}
	var section map[string]any
	if err := json.Unmarshal(payloads[0]["nutrition_plan"], &section); err != nil {
		t.Errorf("decode section: %v", err)
	}
}
