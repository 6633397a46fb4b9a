// Package statusapi polls a third-party status endpoint for auxiliary
// game state (standings, lobby info). Responses are loosely typed JSON;
// failures are folded into the returned record instead of an error, so
// authored triggers can inspect them like any other field.
package statusapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client fetches named paths relative to one base URL.
type Client struct {
	logger *slog.Logger
	base   string
	paths  map[string]string
	http   *http.Client
}

func NewClient(logger *slog.Logger, baseURL string, paths map[string]string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger: logger,
		base:   strings.TrimRight(baseURL, "/"),
		paths:  paths,
		http:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Get fetches one named path. Any failure returns {"exception": msg}
// rather than an error; polling is best-effort by design.
func (c *Client) Get(pathName string) map[string]any {
	path, ok := c.paths[pathName]
	if !ok {
		return exception(fmt.Sprintf("unknown path %q", pathName))
	}
	url := c.base + "/" + strings.TrimLeft(path, "/")

	resp, err := c.http.Get(url)
	if err != nil {
		c.logger.Debug("status request failed", "url", url, "error", err)
		return exception(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return exception(fmt.Sprintf("status %d from %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return exception(err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return exception(err.Error())
	}
	return out
}

func exception(msg string) map[string]any {
	return map[string]any{"exception": msg}
}

// Failed reports whether a Get result is an exception record.
func Failed(res map[string]any) bool {
	_, ok := res["exception"]
	return ok
}
