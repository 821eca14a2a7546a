package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kalambet/gnomo/internal/health"
)

// healthClient talks to a running bot's health server.
type healthClient struct {
	baseURL    string
	httpClient *http.Client
}

func newHealthClient(baseURL string) *healthClient {
	return &healthClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// report fetches /health. A 503 still carries a report, so only transport
// failures and undecodable bodies are errors.
func (c *healthClient) report(ctx context.Context) (health.Report, int, error) {
	var rep health.Report

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return rep, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rep, 0, fmt.Errorf("bot not reachable, is gnomo running? (%w)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return rep, resp.StatusCode, fmt.Errorf("health server returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return rep, resp.StatusCode, fmt.Errorf("decoding health report: %w", err)
	}
	return rep, resp.StatusCode, nil
}
