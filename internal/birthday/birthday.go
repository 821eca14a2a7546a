// Package birthday posts a greeting in the community channel for every
// member whose birthday is today.
package birthday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/gnomo/internal/bucket"
)

// ErrNoChannel is returned when no greeting channel is configured.
var ErrNoChannel = errors.New("birthday channel not configured")

// Birthday is one entry of birthdays.json. Date is "MM-DD".
type Birthday struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// Fetcher reads a JSON object from the asset bucket.
type Fetcher interface {
	FetchJSON(ctx context.Context, path string, out any) error
}

// ChannelResolver checks that a channel accepts text messages.
type ChannelResolver interface {
	ResolveTextChannel(ctx context.Context, channelID string) error
}

// Sender posts a message to a channel.
type Sender interface {
	Send(ctx context.Context, channelID, content string) error
}

// Greeter runs the daily birthday check.
type Greeter struct {
	fetcher   Fetcher
	resolver  ChannelResolver
	sender    Sender
	channelID string
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewGreeter creates a Greeter posting to channelID. Dates are compared in
// loc, or UTC when loc is nil.
func NewGreeter(fetcher Fetcher, resolver ChannelResolver, sender Sender, channelID string, loc *time.Location, logger *slog.Logger) *Greeter {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Greeter{
		fetcher:   fetcher,
		resolver:  resolver,
		sender:    sender,
		channelID: channelID,
		loc:       loc,
		now:       time.Now,
		logger:    logger.With("component", "birthday-check"),
	}
}

// FormatMessage renders the greeting for b.
func FormatMessage(b Birthday) string {
	return fmt.Sprintf("<@%s> Feliz cumpleaños %s! 🎉🎉🎉", b.ID, b.Name)
}

// Today filters the entries whose date matches day in loc.
func Today(all []Birthday, day time.Time, loc *time.Location) []Birthday {
	key := day.In(loc).Format("01-02")
	var out []Birthday
	for _, b := range all {
		if b.Date == key {
			out = append(out, b)
		}
	}
	return out
}

// Check greets everyone whose birthday is on now's date and returns how many
// greetings were sent.
func (g *Greeter) Check(ctx context.Context, now time.Time) (int, error) {
	var all []Birthday
	if err := g.fetcher.FetchJSON(ctx, bucket.BirthdaysPath, &all); err != nil {
		return 0, fmt.Errorf("fetching birthdays: %w", err)
	}

	if g.channelID == "" {
		return 0, ErrNoChannel
	}
	if err := g.resolver.ResolveTextChannel(ctx, g.channelID); err != nil {
		return 0, fmt.Errorf("birthday channel: %w", err)
	}

	sent := 0
	for _, b := range Today(all, now, g.loc) {
		g.logger.Info("sending birthday message", "name", b.Name, "user_id", b.ID)
		if err := g.sender.Send(ctx, g.channelID, FormatMessage(b)); err != nil {
			g.logger.Error("failed to send birthday message", "user_id", b.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Tick runs Check at the current time and logs the outcome. It is the
// scheduler entry point.
func (g *Greeter) Tick(ctx context.Context) {
	if _, err := g.Check(ctx, g.now()); err != nil {
		if errors.Is(err, ErrNoChannel) {
			g.logger.Warn("GNOMOS_CHANNEL_ID not configured")
			return
		}
		g.logger.Error("birthday check failed", "error", err)
	}
}
