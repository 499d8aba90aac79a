package push

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"sync"
	"testing"
	"time"

	"pushr/internal/pkg/errors"
	"pushr/internal/platform/models"
)

type memoryStore struct {
	mu   sync.Mutex
	subs map[string]*models.Subscription
}

func newMemoryStore(endpoints ...string) *memoryStore {
	s := &memoryStore{subs: map[string]*models.Subscription{}}
	for _, e := range endpoints {
		s.subs[e] = &models.Subscription{Endpoint: e}
	}
	return s
}

func (s *memoryStore) List(ctx context.Context) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Subscription
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *memoryStore) DeleteMany(ctx context.Context, endpoints []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range endpoints {
		if _, ok := s.subs[e]; ok {
			delete(s.subs, e)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs), nil
}

func (s *memoryStore) endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for e := range s.subs {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// scriptedTransport fails endpoints with the configured status code.
type scriptedTransport struct {
	mu       sync.Mutex
	failures map[string]int
	panics   map[string]bool
	payloads [][]byte
}

func (t *scriptedTransport) Deliver(ctx context.Context, sub *models.Subscription, payload []byte) error {
	t.mu.Lock()
	t.payloads = append(t.payloads, payload)
	t.mu.Unlock()

	if t.panics[sub.Endpoint] {
		panic("boom")
	}
	if code, ok := t.failures[sub.Endpoint]; ok {
		return &DeliveryError{StatusCode: code, Err: stderrors.New("rejected")}
	}
	return nil
}

func TestDispatch_PrunesOnlyPermanentFailures(t *testing.T) {
	store := newMemoryStore("A", "B", "C")
	transport := &scriptedTransport{failures: map[string]int{"B": 410, "C": 500}}
	d := NewDispatcher(store, transport, nil, Defaults{}, 0)

	result, err := d.Dispatch(context.Background(), Message{Title: "Hi", Body: "there"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if result.Sent != 1 || result.Errors != 2 || result.Cleaned != 1 {
		t.Errorf("got sent=%d errors=%d cleaned=%d, want 1/2/1", result.Sent, result.Errors, result.Cleaned)
	}
	if result.TotalSubscribers != 2 {
		t.Errorf("TotalSubscribers = %d, want 2", result.TotalSubscribers)
	}

	remaining := store.endpoints()
	if len(remaining) != 2 || remaining[0] != "A" || remaining[1] != "C" {
		t.Errorf("remaining = %v, want [A C]", remaining)
	}
}

func TestDispatch_NotFoundIsPermanent(t *testing.T) {
	store := newMemoryStore("A", "B")
	transport := &scriptedTransport{failures: map[string]int{"A": 404}}
	d := NewDispatcher(store, transport, nil, Defaults{}, 1)

	result, err := d.Dispatch(context.Background(), Message{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Cleaned != 1 {
		t.Errorf("Cleaned = %d, want 1", result.Cleaned)
	}
	if got := store.endpoints(); len(got) != 1 || got[0] != "B" {
		t.Errorf("remaining = %v, want [B]", got)
	}
}

func TestDispatch_TransportPanicIsTransient(t *testing.T) {
	store := newMemoryStore("A", "B")
	transport := &scriptedTransport{panics: map[string]bool{"A": true}}
	d := NewDispatcher(store, transport, nil, Defaults{}, 0)

	result, err := d.Dispatch(context.Background(), Message{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Sent != 1 || result.Errors != 1 || result.Cleaned != 0 {
		t.Errorf("got sent=%d errors=%d cleaned=%d, want 1/1/0", result.Sent, result.Errors, result.Cleaned)
	}
	if len(store.endpoints()) != 2 {
		t.Error("panicking endpoint should not be pruned")
	}
}

func TestDispatch_StatsAccumulate(t *testing.T) {
	store := newMemoryStore("A", "B", "C")
	d := NewDispatcher(store, &scriptedTransport{}, nil, Defaults{}, 0)

	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(context.Background(), Message{Title: "t", Body: "b"}); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
	}

	snap := d.Stats().Snapshot()
	if snap.TotalSent != 6 {
		t.Errorf("TotalSent = %d, want 6", snap.TotalSent)
	}
	if snap.TotalErrors != 0 {
		t.Errorf("TotalErrors = %d, want 0", snap.TotalErrors)
	}
	if snap.LastSentAt == nil {
		t.Error("LastSentAt should be set")
	}
}

func TestDispatch_ConcurrentCallsKeepEveryIncrement(t *testing.T) {
	const calls = 50
	store := newMemoryStore("A", "B", "C")
	transport := &scriptedTransport{failures: map[string]int{"C": 500}}
	d := NewDispatcher(store, transport, nil, Defaults{}, 0)

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Dispatch(context.Background(), Message{Title: "t", Body: "b"}); err != nil {
				t.Errorf("Dispatch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	snap := d.Stats().Snapshot()
	if snap.TotalSent != 2*calls {
		t.Errorf("TotalSent = %d, want %d", snap.TotalSent, 2*calls)
	}
	if snap.TotalErrors != calls {
		t.Errorf("TotalErrors = %d, want %d", snap.TotalErrors, calls)
	}
	if got := store.endpoints(); len(got) != 3 {
		t.Errorf("remaining = %v, transient failures must not prune", got)
	}
}

func TestDispatch_NoSubscribers(t *testing.T) {
	d := NewDispatcher(newMemoryStore(), &scriptedTransport{}, nil, Defaults{}, 0)

	result, err := d.Dispatch(context.Background(), Message{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Sent != 0 || result.Errors != 0 || result.TotalSubscribers != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestBuildPayload(t *testing.T) {
	d := NewDispatcher(newMemoryStore(), &scriptedTransport{}, nil, Defaults{
		Icon:  "/icons/icon-192x192.png",
		Badge: "/icons/icon-96x96.png",
		URL:   "/",
	}, 0)
	d.now = func() time.Time { return time.UnixMilli(1700000000000) }

	tests := []struct {
		name    string
		msg     Message
		wantErr string
	}{
		{"missing title", Message{Body: "b"}, "title"},
		{"missing body", Message{Title: "t"}, "body"},
		{"valid", Message{Title: "t", Body: "b"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := d.BuildPayload(tt.msg)
			if tt.wantErr != "" {
				var ve *errors.ValidationError
				if !stderrors.As(err, &ve) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if ve.Field != tt.wantErr {
					t.Errorf("Field = %q, want %q", ve.Field, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var p Payload
			if err := json.Unmarshal(raw, &p); err != nil {
				t.Fatalf("invalid payload JSON: %v", err)
			}
			if p.Tag != "push-1700000000000" {
				t.Errorf("Tag = %q", p.Tag)
			}
			if p.Icon != "/icons/icon-192x192.png" || p.Badge != "/icons/icon-96x96.png" || p.URL != "/" {
				t.Errorf("defaults not applied: %+v", p)
			}
		})
	}
}

func TestBuildPayload_KeepsExplicitFields(t *testing.T) {
	d := NewDispatcher(newMemoryStore(), &scriptedTransport{}, nil, Defaults{Icon: "/default.png", URL: "/"}, 0)

	raw, err := d.BuildPayload(Message{Title: "t", Body: "b", Icon: "/x.png", URL: "/offer", Tag: "promo", Image: "/hero.jpg"})
	if err != nil {
		t.Fatalf("BuildPayload failed: %v", err)
	}

	var p Payload
	json.Unmarshal(raw, &p)
	if p.Icon != "/x.png" || p.URL != "/offer" || p.Tag != "promo" || p.Image != "/hero.jpg" {
		t.Errorf("explicit fields overwritten: %+v", p)
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&DeliveryError{StatusCode: 404}, true},
		{&DeliveryError{StatusCode: 410}, true},
		{&DeliveryError{StatusCode: 500}, false},
		{&DeliveryError{StatusCode: 429}, false},
		{&DeliveryError{}, false},
		{stderrors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := IsPermanent(tt.err); got != tt.want {
			t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
