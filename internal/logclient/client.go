// Package logclient reads console logs from a running daemon over HTTP.
package logclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lccweb/agentwave/internal/models"
)

// maxEventSize bounds a single SSE line.
const maxEventSize = 2 << 20

// Client talks to the daemon's /logs endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the daemon at baseURL (e.g. http://localhost:8001).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// List returns the log files, most recently modified first.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var resp struct {
		Files []string `json:"files"`
	}
	if err := c.getJSON(ctx, "/logs/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Tail returns the lines written to file after offset and the file's current size.
func (c *Client) Tail(ctx context.Context, file string, offset int64) ([]string, int64, error) {
	q := url.Values{}
	q.Set("file", file)
	q.Set("offset", strconv.FormatInt(offset, 10))

	var resp struct {
		Lines []string `json:"lines"`
		Size  int64    `json:"size"`
	}
	if err := c.getJSON(ctx, "/logs/tail", q, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Lines, resp.Size, nil
}

// Stream follows file over SSE, calling fn with every data payload until ctx
// is cancelled, the daemon closes the stream, or fn returns an error.
func (c *Client) Stream(ctx context.Context, file string, fn func(line string) error) error {
	return c.Follow(ctx, file, nil, fn)
}

// Follow is Stream with a callback run once the daemon has accepted the stream.
func (c *Client) Follow(ctx context.Context, file string, onOpen func(), fn func(line string) error) error {
	q := url.Values{}
	q.Set("file", file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/logs/stream?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open log stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log stream returned %s", resp.Status)
	}
	if onOpen != nil {
		onOpen()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		if err := fn(strings.TrimPrefix(data, " ")); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read log stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Parse decodes a JSON log line. Lines that are not JSON are returned as
// plain text with an empty phase.
func Parse(raw string) *models.LogLine {
	var line models.LogLine
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		return &models.LogLine{Text: raw}
	}
	return &line
}
