package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

// fakeUpstash answers GET, SET and DEL from a map, the way the REST API does.
type fakeUpstash struct {
	mu       sync.Mutex
	values   map[string]string
	commands [][]any
}

func newFakeUpstash(t *testing.T) (*fakeUpstash, *httptest.Server) {
	t.Helper()

	f := &fakeUpstash{values: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
			return
		}
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || len(cmd) < 2 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"bad command"}`)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.commands = append(f.commands, cmd)
		key, _ := cmd[1].(string)
		switch cmd[0] {
		case "SET":
			f.values[key], _ = cmd[2].(string)
			fmt.Fprint(w, `{"result":"OK"}`)
		case "GET":
			v, ok := f.values[key]
			if !ok {
				fmt.Fprint(w, `{"result":null}`)
				return
			}
			encoded, _ := json.Marshal(v)
			fmt.Fprintf(w, `{"result":%s}`, encoded)
		case "DEL":
			delete(f.values, key)
			fmt.Fprint(w, `{"result":1}`)
		default:
			fmt.Fprint(w, `{"error":"unknown command"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeUpstash) last() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return nil
	}
	return f.commands[len(f.commands)-1]
}

func newTestStore(t *testing.T, srv *httptest.Server, epoch string, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()

	opts = append([]StoreOption{WithHTTPClient(srv.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: srv.URL, Token: "token"}, epoch, opts...)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{namespace: defaultKeyNamespace, epoch: "gen-1"}
	got, err := store.key("abc")
	if err != nil {
		t.Fatalf("key() error = %v", err)
	}
	if got != "clinic:gen-1:session:abc" {
		t.Fatalf("key() = %q", got)
	}
	if _, err := store.key("  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("key(blank) error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstash(t)
	store := newTestStore(t, srv, "gen-1")
	ctx := context.Background()

	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	st := NewSessionState("s1", now)
	st.Append(contractx.ChatMessage{ID: "m1", Role: contractx.RoleUser, Content: "book Jane", Timestamp: now})
	st.History = []*schema.Message{
		schema.UserMessage("book Jane"),
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "call_1", Type: "function", Function: schema.FunctionCall{Name: "getPatients", Arguments: "{}"}},
			},
		},
		schema.ToolMessage(`{"patients":[]}`, "call_1"),
	}
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cmd := fake.last()
	if len(cmd) != 5 || cmd[0] != "SET" || cmd[1] != "clinic:gen-1:session:s1" || cmd[3] != "EX" {
		t.Fatalf("unexpected SET command: %#v", cmd)
	}
	if ttl, _ := cmd[4].(float64); ttl != defaultTranscriptTTL.Seconds() {
		t.Fatalf("expiry = %v, want %v", cmd[4], defaultTranscriptTTL.Seconds())
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "book Jane" {
		t.Fatalf("unexpected messages: %#v", loaded.Messages)
	}
	if len(loaded.History) != 3 || loaded.History[1].ToolCalls[0].ID != "call_1" || loaded.History[2].ToolCallID != "call_1" {
		t.Fatalf("unexpected history: %#v", loaded.History)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrStateNotFound", err)
	}
}

func TestUpstashRedisStoreNewEpochStartsFresh(t *testing.T) {
	t.Parallel()

	_, srv := newFakeUpstash(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	before := newTestStore(t, srv, "gen-1")
	st := NewSessionState("console", now)
	st.Append(contractx.ChatMessage{ID: "m1", Role: contractx.RoleUser, Content: "invoice P4F2A91C", Timestamp: now})
	if err := before.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A restarted console has a new records store and therefore a new epoch.
	after := newTestStore(t, srv, "gen-2")
	if _, err := after.Load(ctx, "console"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() across epochs error = %v, want ErrStateNotFound", err)
	}
	if _, err := before.Load(ctx, "console"); err != nil {
		t.Fatalf("Load() in the same epoch error = %v", err)
	}
}

func TestUpstashRedisStoreZeroTTL(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstash(t)
	store := newTestStore(t, srv, "gen-1", WithTTL(0), WithNamespace("console:"))

	if err := store.Save(context.Background(), NewSessionState("s1", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	cmd := fake.last()
	if len(cmd) != 3 || cmd[1] != "console:gen-1:session:s1" {
		t.Fatalf("expected SET without expiry, got %#v", cmd)
	}
}

func TestUpstashRedisStoreRejectsInvalidState(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeUpstash(t)
	store := newTestStore(t, srv, "gen-1")
	ctx := context.Background()

	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilSessionState) {
		t.Fatalf("Save(nil) error = %v", err)
	}
	now := time.Now()
	st := NewSessionState("s1", now)
	st.Append(contractx.ChatMessage{ID: "a", Timestamp: now})
	st.Append(contractx.ChatMessage{ID: "b", Timestamp: now.Add(-time.Minute)})
	if err := store.Save(ctx, st); !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("Save(out of order) error = %v, want ErrNonMonotonic", err)
	}
	if fake.last() != nil {
		t.Fatalf("invalid state must not reach redis, got %#v", fake.last())
	}
}

func TestUpstashRedisStoreErrorStatus(t *testing.T) {
	t.Parallel()

	_, srv := newFakeUpstash(t)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: srv.URL, Token: "bad"}, "gen-1", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	if err := store.Save(context.Background(), NewSessionState("s", time.Now())); err == nil {
		t.Fatal("expected error for 401 reply")
	}
}

func TestNewUpstashRedisStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{}, "gen-1"); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "https://example.upstash.io"}, "gen-1"); err == nil {
		t.Fatal("expected error for empty token")
	}
	cfg := UpstashRedisConfig{URL: "https://example.upstash.io", Token: "token"}
	if _, err := NewUpstashRedisStore(cfg, " "); !errors.Is(err, ErrMissingEpoch) {
		t.Fatalf("expected ErrMissingEpoch, got %v", err)
	}
	if _, err := NewUpstashRedisStore(cfg, "gen-1", WithTTL(-time.Second)); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestExpirySeconds(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]int64{
		time.Millisecond:        1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		time.Hour:               3600,
	}
	for ttl, want := range cases {
		if got := expirySeconds(ttl); got != want {
			t.Fatalf("expirySeconds(%v) = %d, want %d", ttl, got, want)
		}
	}
}
