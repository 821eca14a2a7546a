package timeparse

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/gnomo/internal/llm"
)

// mockChatter answers Structured calls with a canned JSON body keyed by the
// quoted expression found in the prompt.
type mockChatter struct {
	answers map[string]string
	err     error
	delay   time.Duration

	lastPrompt string
}

func (m *mockChatter) Structured(ctx context.Context, messages []llm.Message, name string, schema llm.Schema, out any) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	m.lastPrompt = messages[len(messages)-1].Content
	for expr, answer := range m.answers {
		if strings.Contains(m.lastPrompt, `Time expression: "`+expr+`"`) {
			return json.Unmarshal([]byte(answer), out)
		}
	}
	return json.Unmarshal([]byte(`{"minutes":0,"humanReadable":"","valid":false}`), out)
}

func bogota(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	return loc
}

var ref = time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC) // Monday 15:00 in Bogotá

func TestParse(t *testing.T) {
	mock := &mockChatter{answers: map[string]string{
		"en 2 horas":  `{"minutes":120,"humanReadable":"en 2 horas","valid":true}`,
		"en 1 minuto": `{"minutes":1,"humanReadable":"en 1 minuto","valid":true}`,
		"ayer":        `{"minutes":-1440,"humanReadable":"ayer","valid":true}`,
		"ahora":       `{"minutes":0,"humanReadable":"ahora","valid":true}`,
	}}
	p := New(mock, bogota(t), nil)

	tests := []struct {
		expr string
		want Result
	}{
		{"en 2 horas", Result{OffsetMinutes: 120, HumanReadable: "en 2 horas", Valid: true}},
		{"en 1 minuto", Result{OffsetMinutes: 1, HumanReadable: "en 1 minuto", Valid: true}},
		{"asdkjasd", Result{}},
		{"ayer", Result{}},  // negative offset rejected even though the model said valid
		{"ahora", Result{}}, // zero offset rejected
		{"", Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := p.Parse(context.Background(), tt.expr, ref); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParse_PromptAnchoredInUserZone(t *testing.T) {
	mock := &mockChatter{}
	p := New(mock, bogota(t), nil)
	p.Parse(context.Background(), "mañana a las 9am", ref)

	for _, want := range []string{
		"Current date and time: 2025-06-02 15:00:00 (UTC-5)",
		"Current day of week: Monday",
		`Time expression: "mañana a las 9am"`,
	} {
		if !strings.Contains(mock.lastPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, mock.lastPrompt)
		}
	}
}

func TestParse_TransportError(t *testing.T) {
	p := New(&mockChatter{err: errors.New("connection reset")}, time.UTC, nil)
	if got := p.Parse(context.Background(), "en 2 horas", ref); got.Valid {
		t.Errorf("Parse = %+v, want invalid on transport error", got)
	}
}

func TestParse_ContextCancelled(t *testing.T) {
	p := New(&mockChatter{delay: time.Second}, time.UTC, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if got := p.Parse(ctx, "en 2 horas", ref); got.Valid {
		t.Errorf("Parse = %+v, want invalid", got)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Parse took %v, want it to honour cancellation", elapsed)
	}
}

func TestResultDue(t *testing.T) {
	r := Result{OffsetMinutes: 1.5, Valid: true}
	if got := r.Due(ref); !got.Equal(ref.Add(90 * time.Second)) {
		t.Errorf("Due = %v", got)
	}
}

func TestUTCOffset(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{-5 * 3600, "UTC-5"},
		{0, "UTC+0"},
		{5*3600 + 1800, "UTC+5:30"},
	}
	for _, tt := range tests {
		at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("x", tt.secs))
		if got := utcOffset(at); got != tt.want {
			t.Errorf("utcOffset(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
