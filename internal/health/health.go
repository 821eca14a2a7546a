// Package health serves the liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 5 * time.Second

// ErrDisabled marks a dependency that is intentionally not configured. It
// is reported but does not fail the check.
var ErrDisabled = errors.New("disabled")

// Check is one named dependency probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Pinger is anything with a Ping method.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping adapts a Pinger. disabled maps the pinger's own "not configured"
// error to ErrDisabled.
func Ping(name string, p Pinger, disabled error) Check {
	return Check{Name: name, Probe: func(ctx context.Context) error {
		err := p.Ping(ctx)
		if disabled != nil && errors.Is(err, disabled) {
			return ErrDisabled
		}
		return err
	}}
}

// Ready adapts a readiness flag.
func Ready(name string, ready func() bool) Check {
	return Check{Name: name, Probe: func(context.Context) error {
		if !ready() {
			return errors.New("not ready")
		}
		return nil
	}}
}

// Status is the state of one dependency.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report is the /health response body.
type Report struct {
	Status  string            `json:"status"`
	Info    map[string]Status `json:"info"`
	Error   map[string]Status `json:"error"`
	Details map[string]Status `json:"details"`
}

// Run probes every check concurrently.
func Run(ctx context.Context, checks []Check) Report {
	statuses := make([]Status, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			statuses[i] = probe(pctx, c)
			return nil
		})
	}
	g.Wait()

	rep := Report{
		Status:  "ok",
		Info:    map[string]Status{},
		Error:   map[string]Status{},
		Details: map[string]Status{},
	}
	for i, c := range checks {
		st := statuses[i]
		rep.Details[c.Name] = st
		if st.Status == "up" {
			rep.Info[c.Name] = st
			continue
		}
		rep.Error[c.Name] = st
		rep.Status = "error"
	}
	return rep
}

func probe(ctx context.Context, c Check) (st Status) {
	defer func() {
		if p := recover(); p != nil {
			st = Status{Status: "down", Message: "probe panicked"}
		}
	}()

	err := c.Probe(ctx)
	switch {
	case err == nil:
		return Status{Status: "up"}
	case errors.Is(err, ErrDisabled):
		return Status{Status: "up", Message: "disabled"}
	default:
		return Status{Status: "down", Message: err.Error()}
	}
}

// NewHandler returns the health router: /health probes the checks and
// answers 503 when any is down, /health/live always answers 200.
func NewHandler(checks ...Check) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		rep := Run(req.Context(), checks)
		code := http.StatusOK
		if rep.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, rep)
	})
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
