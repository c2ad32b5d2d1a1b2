package webclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned by GetJSON when the remote answers 404.
var ErrNotFound = errors.New("remote resource not found")

// StatusError carries an unexpected HTTP status.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.Status, e.Body)
}

// NewDefault returns an HTTP client with sane timeouts.
func NewDefault(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// JSON fetches remote JSON documents with retry on transient failures.
type JSON struct {
	HTTP      *http.Client
	Attempts  int
	Delay     time.Duration
	UserAgent string
}

// NewJSON builds a JSON fetcher around hc, or a default client when hc is nil.
func NewJSON(hc *http.Client) *JSON {
	if hc == nil {
		hc = NewDefault(0)
	}
	return &JSON{HTTP: hc, Attempts: 3, Delay: 500 * time.Millisecond, UserAgent: "sevenkey-bot"}
}

// GetJSON issues GET url and decodes a 2xx body into out.
func (j *JSON) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	status, body, err := DoWithRetry(ctx, j.Attempts, j.Delay, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")
		if j.UserAgent != "" {
			req.Header.Set("User-Agent", j.UserAgent)
		}

		resp, err := j.HTTP.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		return resp.StatusCode, data, err
	})
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}

	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status < 200 || status >= 300:
		return &StatusError{URL: url, Status: status, Body: truncate(string(body), 200)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
