package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultKeyNamespace  = "clinic"
	defaultTranscriptTTL = 12 * time.Hour
	maxReplyBytes        = 2 << 20
)

var ErrMissingEpoch = errors.New("records epoch is empty")

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"12h"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c UpstashRedisConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// UpstashRedisStore keeps transcripts in Upstash Redis. Keys carry the epoch
// of the records store the conversation ran against: patient, appointment and
// invoice ids only exist inside that store, so a restarted console starts a
// fresh conversation instead of resuming one that cites vanished records.
type UpstashRedisStore struct {
	rest      *upstashREST
	namespace string
	epoch     string
	ttl       time.Duration
}

type StoreOption func(*UpstashRedisStore)

func WithNamespace(ns string) StoreOption {
	return func(s *UpstashRedisStore) {
		if ns = strings.Trim(strings.TrimSpace(ns), ":"); ns != "" {
			s.namespace = ns
		}
	}
}

// WithTTL sets key expiry. Zero keeps keys until deleted.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.rest.client = client
		}
	}
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, epoch string, opts ...StoreOption) (*UpstashRedisStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid upstash redis url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}
	epoch = strings.TrimSpace(epoch)
	if epoch == "" {
		return nil, ErrMissingEpoch
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &UpstashRedisStore{
		rest: &upstashREST{
			endpoint: endpoint,
			token:    token,
			client:   &http.Client{Timeout: timeout},
		},
		namespace: defaultKeyNamespace,
		epoch:     epoch,
		ttl:       defaultTranscriptTTL,
	}
	if cfg.TTL > 0 {
		s.ttl = cfg.TTL
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return s, nil
}

func (s *UpstashRedisStore) Epoch() string {
	return s.epoch
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}
	result, err := s.rest.call(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}

	// GET returns the stored value as a JSON string.
	var payload string
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("decode transcript payload: %w", err)
	}
	var st SessionState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("stored session %s: %w", sessionID, err)
	}
	return &st, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	key, err := s.key(st.SessionID)
	if err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.Touch(time.Now())
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	args := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		args = append(args, "EX", expirySeconds(s.ttl))
	}
	_, err = s.rest.call(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	_, err = s.rest.call(ctx, "DEL", key)
	return err
}

// key is <namespace>:<epoch>:session:<id>.
func (s *UpstashRedisStore) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return s.namespace + ":" + s.epoch + ":session:" + sessionID, nil
}

// expirySeconds rounds up so a sub-second ttl still expires.
func expirySeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// upstashREST posts Redis commands as JSON arrays to the Upstash REST endpoint.
type upstashREST struct {
	endpoint string
	token    string
	client   *http.Client
}

type upstashReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (r *upstashREST) call(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redis %v: %w", args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis reply: %w", err)
	}

	var reply upstashReply
	decodeErr := json.Unmarshal(raw, &reply)
	if resp.StatusCode/100 != 2 {
		if decodeErr == nil && reply.Error != "" {
			return nil, fmt.Errorf("redis %v: status %d: %s", args[0], resp.StatusCode, reply.Error)
		}
		return nil, fmt.Errorf("redis %v: status %d", args[0], resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode redis reply: %w", decodeErr)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("redis %v: %s", args[0], reply.Error)
	}
	return bytes.TrimSpace(reply.Result), nil
}
