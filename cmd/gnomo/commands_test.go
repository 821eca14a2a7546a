package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"

	"github.com/kalambet/gnomo/internal/config"
	"github.com/kalambet/gnomo/internal/health"
	"github.com/kalambet/gnomo/internal/kv"
	"github.com/kalambet/gnomo/internal/reminder"
)

var ctx = context.Background()

func newCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	return cmd
}

// isolateConfig points every config source at empty temp dirs.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("USER_TIMEZONE", "America/Bogota")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("REDIS_URL", "")
}

func withStore(t *testing.T, fn func(config.Config) (kv.Store, error)) {
	t.Helper()
	old := openStore
	openStore = fn
	t.Cleanup(func() { openStore = old })
}

func TestStatus_Healthy(t *testing.T) {
	ts := httptest.NewServer(health.NewHandler(
		health.Ready("discord", func() bool { return true }),
		health.Ping("kv", pingFunc(func(context.Context) error { return kv.ErrNotConfigured }), kv.ErrNotConfigured),
	))
	defer ts.Close()

	if err := showStatus(newCmd(), newHealthClient(ts.URL)); err != nil {
		t.Errorf("showStatus: %v", err)
	}
}

func TestStatus_Unhealthy(t *testing.T) {
	ts := httptest.NewServer(health.NewHandler(
		health.Ready("discord", func() bool { return false }),
	))
	defer ts.Close()

	c := newHealthClient(ts.URL)
	rep, code, err := c.report(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if code != http.StatusServiceUnavailable || rep.Error["discord"].Message != "not ready" {
		t.Errorf("code = %d, report = %+v", code, rep)
	}

	err = showStatus(newCmd(), c)
	if err == nil || !strings.Contains(err.Error(), "unhealthy") {
		t.Errorf("err = %v, want unhealthy", err)
	}
}

func TestStatus_Stopped(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	_, _, err := newHealthClient(ts.URL).report(ctx)
	if err == nil {
		t.Fatal("expected error for stopped bot")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestStatus_UnexpectedResponse(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	_, code, err := newHealthClient(ts.URL).report(ctx)
	if err == nil || code != http.StatusNotFound {
		t.Errorf("code = %d, err = %v", code, err)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestStatusColor(t *testing.T) {
	cases := map[string]string{"up": colorGreen, "ok": colorGreen, "down": colorRed, "error": colorRed, "": colorYellow}
	for in, want := range cases {
		if got := statusColor(in); got != want {
			t.Errorf("statusColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintReminders(t *testing.T) {
	old := noColor
	noColor = true
	defer func() { noColor = old }()

	loc, _ := time.LoadLocation("America/Bogota")
	due := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	printReminders(&buf, []reminder.Reminder{{
		ID:        "1773520200000-abc1234",
		Username:  "alice",
		ChannelID: "c1",
		Message:   strings.Repeat("x", 100),
		DueTime:   due.UnixMilli(),
	}}, loc)

	got := buf.String()
	want := "1773520200000-abc1234  2026-03-14 15:30  alice  #c1  " + strings.Repeat("x", 80) + "...\n"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}

	buf.Reset()
	printReminders(&buf, []reminder.Reminder{{
		ID:        "1773520200000-def5678",
		Username:  "ñoño",
		ChannelID: "c1",
		Message:   "a" + strings.Repeat("ñ", 90),
		DueTime:   due.UnixMilli(),
	}}, loc)
	if !utf8.ValidString(buf.String()) {
		t.Errorf("truncation split a rune: %q", buf.String())
	}
	if want := "a" + strings.Repeat("ñ", 79) + "...\n"; !strings.HasSuffix(buf.String(), want) {
		t.Errorf("got %q, want suffix %q", buf.String(), want)
	}

	buf.Reset()
	printReminders(&buf, nil, loc)
	if buf.String() != "No pending reminders.\n" {
		t.Errorf("empty list printed %q", buf.String())
	}
}

func TestRemindersList_JSON(t *testing.T) {
	isolateConfig(t)

	mr := miniredis.RunT(t)
	seed, err := kv.NewRedis("redis://" + mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer seed.Close()

	logger := slog.Default()
	seeded := reminder.NewStore(seed, logger)
	now := time.Now()
	later := seeded.Create(ctx, "u1", "alice", "c1", "tarde", now.Add(2*time.Hour))
	sooner := seeded.Create(ctx, "u2", "bob", "c1", "pronto", now.Add(time.Hour))
	if later == nil || sooner == nil {
		t.Fatal("seeding reminders failed")
	}

	withStore(t, func(config.Config) (kv.Store, error) {
		return kv.NewRedis("redis://" + mr.Addr())
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"reminders", "list", "--json"})
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("reminders list: %v", err)
	}

	var got []reminder.Reminder
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decoding %q: %v", out.String(), err)
	}
	if len(got) != 2 || got[0].ID != sooner.ID || got[1].ID != later.ID {
		t.Errorf("got %+v, want sooner then later", got)
	}
}

func TestRemindersList_NoStore(t *testing.T) {
	isolateConfig(t)
	withStore(t, func(config.Config) (kv.Store, error) { return nil, nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"reminders", "list"})
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("reminders list: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", out.String())
	}
}

func TestRemindersList_StoreError(t *testing.T) {
	isolateConfig(t)
	withStore(t, func(config.Config) (kv.Store, error) { return nil, errors.New("boom") })

	rootCmd.SetArgs([]string{"reminders", "list"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "opening store: boom") {
		t.Errorf("err = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "gnomo dev\n" {
		t.Errorf("version printed %q", out.String())
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		min   slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		l := newLogger(tt.level)
		if !l.Enabled(ctx, tt.min) {
			t.Errorf("newLogger(%q) drops %v", tt.level, tt.min)
		}
		if l.Enabled(ctx, tt.min-1) {
			t.Errorf("newLogger(%q) keeps %v", tt.level, tt.min-1)
		}
	}
}

func TestBuildServices(t *testing.T) {
	withStore(t, func(config.Config) (kv.Store, error) { return nil, nil })

	var cfg config.Config
	cfg.Schedule.Timezone = "America/Bogota"
	cfg.Bucket.URL = "https://bucket.example.com/gnomo"

	svc, err := buildServices(cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	defer svc.Close()

	if got := len(svc.catalog.Tools()); got != 7 {
		t.Errorf("catalog has %d tools, want 7", got)
	}
	if svc.reminders.IsAvailable() {
		t.Error("reminders available without a store")
	}
	if svc.loc.String() != "America/Bogota" {
		t.Errorf("loc = %v", svc.loc)
	}

	cfg.Schedule.Timezone = "Nowhere/Nothing"
	if _, err := buildServices(cfg, slog.Default()); err == nil {
		t.Error("expected a timezone error")
	}
}
