package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ChannelResolver checks that a channel exists and accepts text messages.
// Any error means the reminder cannot be delivered there.
type ChannelResolver interface {
	ResolveTextChannel(ctx context.Context, channelID string) error
}

// Sender posts a message to a channel.
type Sender interface {
	Send(ctx context.Context, channelID, content string) error
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Due       int
	Delivered int
	Skipped   int // unresolvable channel
	Failed    int // send error
}

// Dispatcher delivers due reminders. Every due reminder is removed exactly
// once per sweep whatever the delivery outcome, so a poison reminder cannot
// be retried forever. Delivery is at most once.
type Dispatcher struct {
	store    *Store
	resolver ChannelResolver
	sender   Sender
	now      func() time.Time
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *Store, resolver ChannelResolver, sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    store,
		resolver: resolver,
		sender:   sender,
		now:      time.Now,
		logger:   logger.With("component", "reminder-check"),
	}
}

// FormatMessage renders the text delivered for r.
func FormatMessage(r Reminder) string {
	return fmt.Sprintf("<@%s> ¡Recordatorio! %s", r.UserID, r.Message)
}

// Sweep delivers every reminder due at now, sequentially.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) SweepResult {
	due := d.store.DueAt(ctx, now)
	res := SweepResult{Due: len(due)}
	if len(due) == 0 {
		return res
	}

	d.logger.Info("processing due reminders", "count", len(due))
	for _, r := range due {
		switch d.deliver(ctx, r) {
		case outcomeDelivered:
			res.Delivered++
		case outcomeSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
		d.store.Remove(ctx, r.ID)
	}
	return res
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (d *Dispatcher) deliver(ctx context.Context, r Reminder) (o outcome) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("failed to send reminder", "reminder_id", r.ID, "panic", p)
			o = outcomeFailed
		}
	}()

	if err := d.resolver.ResolveTextChannel(ctx, r.ChannelID); err != nil {
		d.logger.Warn("cannot deliver reminder",
			"reminder_id", r.ID, "channel_id", r.ChannelID, "error", err)
		return outcomeSkipped
	}

	if err := d.sender.Send(ctx, r.ChannelID, FormatMessage(r)); err != nil {
		d.logger.Error("failed to send reminder", "reminder_id", r.ID, "error", err)
		return outcomeFailed
	}

	d.logger.Info("reminder sent",
		"reminder_id", r.ID, "username", r.Username, "channel_id", r.ChannelID)
	return outcomeDelivered
}

// Tick runs one sweep at the current time. It is the scheduler entry point.
func (d *Dispatcher) Tick(ctx context.Context) {
	d.Sweep(ctx, d.now())
}

// Run sweeps every interval until ctx is cancelled. If interval is <= 0 it
// defaults to one minute.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}
