// Package reminder persists time-deferred reminders and delivers them once
// they are due.
//
// Each pending reminder lives in two places addressed by the same id: a JSON
// record under reminder:<id> and a member of the reminders:due sorted set
// scored by its due time in unix millis. Remove always clears both.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/gnomo/internal/kv"
)

const (
	dueIndexKey     = "reminders:due"
	recordKeyPrefix = "reminder:"
)

// Reminder is a pending notification for a user in a channel.
type Reminder struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	ChannelID string `json:"channelId"`
	Message   string `json:"message"`
	DueTime   int64  `json:"dueTime"`   // unix millis
	CreatedAt int64  `json:"createdAt"` // unix millis
}

// Due returns the due time as a time.Time.
func (r Reminder) Due() time.Time { return time.UnixMilli(r.DueTime) }

// Store is the reminder queue. A Store over a nil kv.Store is valid; every
// operation then degrades to a no-op or empty result.
type Store struct {
	kv     kv.Store
	now    func() time.Time
	newID  func(time.Time) string
	logger *slog.Logger
}

// NewStore creates a Store backed by store, which may be nil.
func NewStore(store kv.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reminders")
	if store == nil {
		logger.Info("no key-value store configured, reminders disabled")
	}
	return &Store{kv: store, now: time.Now, newID: newID, logger: logger}
}

// newID returns "<unix millis>-<7 random chars>". Uniqueness is probabilistic.
func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

func recordKey(id string) string { return recordKeyPrefix + id }

// IsAvailable reports whether a backing store is configured.
func (s *Store) IsAvailable() bool { return s.kv != nil }

// Create stores a reminder due at due. It returns nil when the store is
// unavailable or any write fails; the caller treats nil as "not scheduled".
func (s *Store) Create(ctx context.Context, userID, username, channelID, message string, due time.Time) *Reminder {
	if s.kv == nil {
		s.logger.Error("cannot create reminder, store not configured")
		return nil
	}

	now := s.now()
	r := &Reminder{
		ID:        s.newID(now),
		UserID:    userID,
		Username:  username,
		ChannelID: channelID,
		Message:   message,
		DueTime:   due.UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}

	data, err := json.Marshal(r)
	if err != nil {
		s.logger.Error("failed to encode reminder", "error", err)
		return nil
	}
	if err := s.kv.Set(ctx, recordKey(r.ID), string(data), 0); err != nil {
		s.logger.Error("failed to create reminder", "error", err)
		return nil
	}
	if err := s.kv.ZAdd(ctx, dueIndexKey, float64(r.DueTime), r.ID); err != nil {
		s.logger.Error("failed to index reminder", "reminder_id", r.ID, "error", err)
		// Don't leave a record the sweep can never find.
		if err := s.kv.Del(ctx, recordKey(r.ID)); err != nil {
			s.logger.Warn("failed to roll back reminder record", "reminder_id", r.ID, "error", err)
		}
		return nil
	}

	s.logger.Info("reminder created",
		"reminder_id", r.ID,
		"username", username,
		"due", r.Due().UTC().Format(time.RFC3339))
	return r
}

// DueAt returns every reminder with a due time at or before now, ordered by
// due time. Records that cannot be decoded are skipped.
func (s *Store) DueAt(ctx context.Context, now time.Time) []Reminder {
	return s.scan(ctx, float64(now.UnixMilli()))
}

// Pending returns all stored reminders ordered by due time.
func (s *Store) Pending(ctx context.Context) []Reminder {
	return s.scan(ctx, math.MaxFloat64)
}

func (s *Store) scan(ctx context.Context, max float64) []Reminder {
	if s.kv == nil {
		return nil
	}

	ids, err := s.kv.ZRangeByScore(ctx, dueIndexKey, 0, max)
	if err != nil {
		s.logger.Error("failed to get due reminders", "error", err)
		return nil
	}

	reminders := make([]Reminder, 0, len(ids))
	for _, id := range ids {
		raw, found, err := s.kv.Get(ctx, recordKey(id))
		if err != nil {
			s.logger.Error("failed to read reminder", "reminder_id", id, "error", err)
			continue
		}
		if !found {
			// Index entry without a record: nothing to deliver, drop it.
			s.logger.Warn("dangling reminder index entry", "reminder_id", id)
			if err := s.kv.ZRem(ctx, dueIndexKey, id); err != nil {
				s.logger.Warn("failed to drop dangling index entry", "reminder_id", id, "error", err)
			}
			continue
		}

		var r Reminder
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.logger.Warn("failed to parse reminder data", "reminder_id", id, "error", err)
			continue
		}
		if r.ID == "" {
			r.ID = id
		}
		reminders = append(reminders, r)
	}
	return reminders
}

// Remove deletes the reminder record and then its index entry. Both deletes
// are attempted; an index entry left behind by a failure is dropped by the
// next due query. Removing an unknown id is not an error.
func (s *Store) Remove(ctx context.Context, id string) {
	if s.kv == nil {
		return
	}
	ok := true
	if err := s.kv.Del(ctx, recordKey(id)); err != nil {
		s.logger.Error("failed to delete reminder record", "reminder_id", id, "error", err)
		ok = false
	}
	if err := s.kv.ZRem(ctx, dueIndexKey, id); err != nil {
		s.logger.Error("failed to delete reminder index entry", "reminder_id", id, "error", err)
		ok = false
	}
	if ok {
		s.logger.Debug("reminder deleted", "reminder_id", id)
	}
}

// Ping checks the backing store.
func (s *Store) Ping(ctx context.Context) error {
	if s.kv == nil {
		return kv.ErrNotConfigured
	}
	return s.kv.Ping(ctx)
}
