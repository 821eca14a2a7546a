// Package timeparse turns free-text Spanish time expressions ("en 2 horas",
// "mañana a las 9am") into an offset from now using an LLM structured call.
package timeparse

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/gnomo/internal/llm"
)

const (
	DefaultTimezone = "America/Bogota"

	parseTimeout = 15 * time.Second
)

// StructuredChatter is the LLM call the parser depends on.
type StructuredChatter interface {
	Structured(ctx context.Context, messages []llm.Message, name string, schema llm.Schema, out any) error
}

// Result is the outcome of parsing one expression. Only results with Valid
// set should be used; Valid implies OffsetMinutes > 0.
type Result struct {
	OffsetMinutes float64 `json:"minutes"`
	HumanReadable string  `json:"humanReadable"`
	Valid         bool    `json:"valid"`
}

// Due returns now shifted by the parsed offset.
func (r Result) Due(now time.Time) time.Time {
	return now.Add(time.Duration(r.OffsetMinutes * float64(time.Minute)))
}

// Parser resolves time expressions relative to a reference time in the
// user's time zone.
type Parser struct {
	client StructuredChatter
	loc    *time.Location
	logger *slog.Logger
}

// New creates a Parser. A nil loc means America/Bogota, or UTC if the zone
// database is unavailable.
func New(client StructuredChatter, loc *time.Location, logger *slog.Logger) *Parser {
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(DefaultTimezone); err != nil {
			loc = time.UTC
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{client: client, loc: loc, logger: logger.With("component", "timeparse")}
}

// Location returns the zone expressions are interpreted in.
func (p *Parser) Location() *time.Location { return p.loc }

// Parse interprets expression relative to now. Transport failures, model
// refusals and non-positive offsets all yield Result{Valid: false}.
func (p *Parser) Parse(ctx context.Context, expression string, now time.Time) Result {
	if expression == "" {
		return Result{}
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: BuildPrompt(expression, now.In(p.loc))},
	}

	var out Result
	if err := p.client.Structured(ctx, messages, "time_parse", schema(), &out); err != nil {
		p.logger.Error("failed to parse time expression", "expression", expression, "error", err)
		return Result{}
	}

	if !out.Valid || out.OffsetMinutes <= 0 {
		p.logger.Debug("could not parse time expression", "expression", expression)
		return Result{}
	}

	p.logger.Debug("parsed time expression",
		"expression", expression,
		"minutes", out.OffsetMinutes,
		"human_readable", out.HumanReadable)
	return out
}

func schema() llm.Schema {
	return llm.Object(map[string]llm.SchemaProperty{
		"minutes": {
			Type:        "number",
			Description: "Number of minutes from now when reminder should trigger. Must be positive.",
		},
		"humanReadable": {
			Type:        "string",
			Description: `Human-readable description of when reminder will trigger, in Spanish. Example: "en 2 horas", "mañana a las 9:00"`,
		},
		"valid": {
			Type:        "boolean",
			Description: "Whether time expression could be parsed successfully",
		},
	}, "minutes", "humanReadable", "valid")
}
