// Package bucket reads the static JSON assets (phrases, images, birthdays)
// published in a public object-storage bucket.
package bucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	PhrasesPath   = "phrases.json"
	ImagesPath    = "images.json"
	BirthdaysPath = "birthdays.json"
)

// Client fetches objects relative to a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client rooted at baseURL.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("component", "bucket"),
	}
}

// URL returns the absolute URL of the object at path.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// FetchJSON decodes the object at path into out.
func (c *Client) FetchJSON(ctx context.Context, path string, out any) error {
	c.logger.Debug("fetching bucket data", "path", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// RandomString picks a random element of the JSON string array at path.
// found is false when the array is empty or cannot be fetched.
func (c *Client) RandomString(ctx context.Context, path string) (item string, found bool) {
	var items []string
	if err := c.FetchJSON(ctx, path, &items); err != nil {
		c.logger.Error("failed to fetch bucket data", "path", path, "error", err)
		return "", false
	}
	if len(items) == 0 {
		return "", false
	}
	return items[rand.IntN(len(items))], true
}

// Ping checks that the bucket answers at its root. Any HTTP response counts
// as reachable; public buckets often refuse listing.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinging bucket: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("pinging bucket: status %d", resp.StatusCode)
	}
	return nil
}
