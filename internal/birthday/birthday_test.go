package birthday

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kalambet/gnomo/internal/bucket"
)

type fakeChannels struct {
	resolveErr error
	sendErr    map[string]error
	sent       []string
}

func (f *fakeChannels) ResolveTextChannel(context.Context, string) error { return f.resolveErr }

func (f *fakeChannels) Send(_ context.Context, _ string, content string) error {
	if err := f.sendErr[content]; err != nil {
		return err
	}
	f.sent = append(f.sent, content)
	return nil
}

func bucketServer(t *testing.T, birthdays []Birthday) *bucket.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+bucket.BirthdaysPath {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(birthdays)
	}))
	t.Cleanup(srv.Close)
	return bucket.New(srv.URL, nil)
}

var bogota = time.FixedZone("UTC-5", -5*60*60)

func TestCheckGreetsToday(t *testing.T) {
	assets := bucketServer(t, []Birthday{
		{ID: "1", Name: "Ana", Date: "03-14"},
		{ID: "2", Name: "Beto", Date: "03-15"},
		{ID: "3", Name: "Caro", Date: "03-14"},
	})
	ch := &fakeChannels{}
	g := NewGreeter(assets, ch, ch, "gnomos", bogota, nil)

	// 08:00 in Bogotá is 13:00 UTC.
	now := time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC)
	sent, err := g.Check(context.Background(), now)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []string{
		"<@1> Feliz cumpleaños Ana! 🎉🎉🎉",
		"<@3> Feliz cumpleaños Caro! 🎉🎉🎉",
	}
	if sent != 2 || len(ch.sent) != 2 || ch.sent[0] != want[0] || ch.sent[1] != want[1] {
		t.Errorf("sent = %d %v, want %v", sent, ch.sent, want)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	all := []Birthday{{ID: "1", Name: "Ana", Date: "03-14"}}
	// 02:00 UTC on the 15th is still the 14th in Bogotá.
	day := time.Date(2025, 3, 15, 2, 0, 0, 0, time.UTC)

	if got := Today(all, day, bogota); len(got) != 1 {
		t.Errorf("Bogotá: got %v, want Ana", got)
	}
	if got := Today(all, day, time.UTC); len(got) != 0 {
		t.Errorf("UTC: got %v, want none", got)
	}
}

func TestCheckSkips(t *testing.T) {
	now := time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC)

	t.Run("no channel configured", func(t *testing.T) {
		ch := &fakeChannels{}
		g := NewGreeter(bucketServer(t, []Birthday{{ID: "1", Name: "Ana", Date: "03-14"}}), ch, ch, "", bogota, nil)
		if _, err := g.Check(context.Background(), now); !errors.Is(err, ErrNoChannel) {
			t.Errorf("err = %v, want ErrNoChannel", err)
		}
		if len(ch.sent) != 0 {
			t.Errorf("sent = %v", ch.sent)
		}
	})

	t.Run("not a text channel", func(t *testing.T) {
		ch := &fakeChannels{resolveErr: errors.New("not a guild text channel")}
		g := NewGreeter(bucketServer(t, []Birthday{{ID: "1", Name: "Ana", Date: "03-14"}}), ch, ch, "voice", bogota, nil)
		if _, err := g.Check(context.Background(), now); err == nil {
			t.Error("expected an error")
		}
		if len(ch.sent) != 0 {
			t.Errorf("sent = %v", ch.sent)
		}
	})

	t.Run("bucket unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()
		ch := &fakeChannels{}
		g := NewGreeter(bucket.New(srv.URL, nil), ch, ch, "gnomos", bogota, nil)
		if _, err := g.Check(context.Background(), now); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestCheckContinuesAfterSendFailure(t *testing.T) {
	assets := bucketServer(t, []Birthday{
		{ID: "1", Name: "Ana", Date: "03-14"},
		{ID: "2", Name: "Beto", Date: "03-14"},
	})
	ch := &fakeChannels{sendErr: map[string]error{
		"<@1> Feliz cumpleaños Ana! 🎉🎉🎉": errors.New("rate limited"),
	}}
	g := NewGreeter(assets, ch, ch, "gnomos", bogota, nil)

	sent, err := g.Check(context.Background(), time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if sent != 1 || len(ch.sent) != 1 || ch.sent[0] != "<@2> Feliz cumpleaños Beto! 🎉🎉🎉" {
		t.Errorf("sent = %d %v", sent, ch.sent)
	}
}

func TestTickUsesClock(t *testing.T) {
	ch := &fakeChannels{}
	g := NewGreeter(bucketServer(t, []Birthday{{ID: "1", Name: "Ana", Date: "12-24"}}), ch, ch, "gnomos", bogota, nil)
	g.now = func() time.Time { return time.Date(2025, 12, 24, 13, 0, 0, 0, time.UTC) }

	g.Tick(context.Background())

	if len(ch.sent) != 1 {
		t.Errorf("sent = %v", ch.sent)
	}
}
