// FilePath: internal/clients/beep/client.go
package beep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	snippetBytes          = 256
)

// PostResult describes one measurement upload.
type PostResult struct {
	Status    int
	Body      string
	Throttled time.Duration
}

// OK reports a 2xx response.
func (r PostResult) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Client talks to the BEEP sensors API with a bearer token. It backs off
// on its own when the rate limit runs low.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) time.Duration
}

// New builds a client from the beep section of the configuration.
func New(cfg config.BeepConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithClock replaces the clock and the sleeper used for throttling. The
// sleeper returns how long it actually paused.
func (c *Client) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) time.Duration) *Client {
	c.now = now
	c.sleep = sleep
	return c
}

// LastValues returns the time of the newest measurement BEEP holds for a hive.
func (c *Client) LastValues(ctx context.Context, hiveID string) (time.Time, error) {
	u := c.baseURL + "/api/sensors/lastvalues?hive_id=" + url.QueryEscape(hiveID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, errors.NewTransportError("failed to build request", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, errors.NewTransportError("lastvalues request failed", err).WithOp("lastvalues")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, errors.NewProtocolError(fmt.Sprintf("lastvalues returned %d", resp.StatusCode), resp.StatusCode).WithOp("lastvalues")
	}

	var last struct {
		Time string `json:"time"`
	}
	if err := json.Unmarshal(body, &last); err != nil {
		nuts.L.Errorf("[BeepClient] lastvalues for %s: undecodable body (status %d): %s", hiveID, resp.StatusCode, snippet(body))
		return time.Time{}, errors.NewDecodeError("failed to decode lastvalues", err).WithOp("lastvalues")
	}
	if last.Time == "" {
		return time.Time{}, errors.NewDecodeError("lastvalues without time", nil).WithOp("lastvalues")
	}
	t, err := time.Parse(time.RFC3339, last.Time)
	if err != nil {
		return time.Time{}, errors.NewDecodeError("lastvalues time is not RFC3339", err).WithOp("lastvalues")
	}
	return t.UTC(), nil
}

// Post uploads one measurement for a device key. Non-2xx responses are not
// errors; they are reported through PostResult. The call blocks while the
// rate limit is nearly exhausted.
func (c *Client) Post(ctx context.Context, key string, payload any) (PostResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return PostResult{}, errors.NewDecodeError("failed to encode measurement", err)
	}
	u := c.baseURL + "/api/sensors?key=" + url.QueryEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return PostResult{}, errors.NewTransportError("failed to build request", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PostResult{}, errors.NewTransportError("measurement upload failed", err).WithOp("post_measurement")
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	res := PostResult{Status: resp.StatusCode, Body: snippet(respBody)}
	if rl, ok := ParseRateLimit(resp.Header); ok {
		if d := rl.Delay(c.now()); d > 0 {
			nuts.L.Warnf("[BeepClient] rate limit low (%d/%d), pausing %s", rl.Remaining, rl.Limit, d)
			res.Throttled = c.sleep(ctx, d)
		}
	}
	return res, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
}

// sleepContext pauses for d or until ctx is done and returns the time spent.
func sleepContext(ctx context.Context, d time.Duration) time.Duration {
	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return d
	case <-ctx.Done():
		return time.Since(start)
	}
}

func snippet(body []byte) string {
	if len(body) > snippetBytes {
		body = body[:snippetBytes]
	}
	return string(body)
}
