// Package history keeps a bounded, expiring log of chat turns per channel.
//
// The log is stored as a single JSON array under conversation:<channelID>.
// Every append rewrites the whole array and resets its expiry, so an active
// channel never expires. All operations swallow store errors: losing context
// must never block a reply.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/gnomo/internal/kv"
)

const (
	DefaultMaxMessages = 100
	DefaultTTL         = 24 * time.Hour

	keyPrefix = "conversation:"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a channel conversation.
type Turn struct {
	Role      Role   `json:"role"`
	Username  string `json:"username"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// Store reads and writes conversation logs. A Store over a nil kv.Store is
// valid and behaves as "history disabled".
type Store struct {
	kv          kv.Store
	maxMessages int
	ttl         time.Duration
	logger      *slog.Logger
}

// New creates a Store. Non-positive maxMessages and ttl fall back to the
// defaults.
func New(store kv.Store, maxMessages int, ttl time.Duration, logger *slog.Logger) *Store {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history")
	if store == nil {
		logger.Warn("no key-value store configured, conversation history disabled")
	}
	return &Store{kv: store, maxMessages: maxMessages, ttl: ttl, logger: logger}
}

// Enabled reports whether a backing store is configured.
func (s *Store) Enabled() bool { return s.kv != nil }

func key(channelID string) string { return keyPrefix + channelID }

// Get returns the channel's turns, oldest first. It returns nil when the log
// is absent, history is disabled, or the read fails.
func (s *Store) Get(ctx context.Context, channelID string) []Turn {
	if s.kv == nil {
		return nil
	}
	turns, err := s.load(ctx, channelID)
	if err != nil {
		s.logger.Error("failed to fetch channel history, continuing without it",
			"channel_id", channelID, "error", err)
		return nil
	}
	return turns
}

// Append adds turn to the channel's log, drops the oldest entries beyond the
// configured maximum and rewrites the log with a fresh TTL.
func (s *Store) Append(ctx context.Context, channelID string, turn Turn) {
	if s.kv == nil {
		return
	}
	if err := s.appendTurn(ctx, channelID, turn); err != nil {
		s.logger.Error("failed to add message to history",
			"channel_id", channelID, "error", err)
	}
}

func (s *Store) appendTurn(ctx context.Context, channelID string, turn Turn) error {
	turns, err := s.load(ctx, channelID)
	if err != nil {
		return err
	}

	turns = append(turns, turn)
	if len(turns) > s.maxMessages {
		turns = turns[len(turns)-s.maxMessages:]
	}

	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return s.kv.Set(ctx, key(channelID), string(data), s.ttl)
}

// Clear deletes the channel's log. Clearing an absent log is a no-op.
func (s *Store) Clear(ctx context.Context, channelID string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Del(ctx, key(channelID)); err != nil {
		s.logger.Error("failed to clear channel history",
			"channel_id", channelID, "error", err)
	}
}

// Ping checks the backing store. It returns kv.ErrNotConfigured when history
// is disabled.
func (s *Store) Ping(ctx context.Context) error {
	if s.kv == nil {
		return kv.ErrNotConfigured
	}
	return s.kv.Ping(ctx)
}

func (s *Store) load(ctx context.Context, channelID string) ([]Turn, error) {
	raw, found, err := s.kv.Get(ctx, key(channelID))
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return nil, nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return turns, nil
}
