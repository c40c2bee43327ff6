// FilePath: internal/clients/bhm/client.go
package bhm

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
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const (
	DefaultUserAgent      = "bees-sync/1.0"
	DefaultRequestTimeout = 30 * time.Second

	authHeader   = "X-Auth-Token"
	snippetBytes = 256
	maxBodyBytes = 64 << 20
)

// Client reads entities and their history from the BeehiveMonitoring API.
type Client struct {
	baseURL    string
	token      string
	kind       models.EntityKind
	attributes []string
	userAgent  string
	httpClient *http.Client
}

// New builds a client from the source section of the configuration.
func New(cfg config.SourceConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		kind:       cfg.Entity,
		attributes: cfg.Attributes,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Kind returns the collection this client reads.
func (c *Client) Kind() models.EntityKind {
	return c.kind
}

// ListEntities returns every live entity of the configured kind.
func (c *Client) ListEntities(ctx context.Context) ([]models.RemoteEntity, error) {
	var entities []models.RemoteEntity
	if err := c.get(ctx, "/api/"+string(c.kind), nil, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// FetchHistory returns up to limit records for one entity, newest first. A
// nil attributes slice requests the configured attribute list.
func (c *Client) FetchHistory(ctx context.Context, entityID int64, limit int, attributes []string) ([]models.RemoteRecord, error) {
	if attributes == nil {
		attributes = c.attributes
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("reverse", "true")
	if len(attributes) > 0 {
		q.Set("attributes", models.AttributeQuery(attributes))
	}

	var records []models.RemoteRecord
	path := fmt.Sprintf("/api/%s/%d/history", c.kind, entityID)
	if err := c.get(ctx, path, q, &records); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			appErr.WithEntity(entityID)
		}
		return nil, err
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		// the API expects literal semicolons between attribute names
		u += "?" + strings.ReplaceAll(query.Encode(), "%3B", ";")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.NewTransportError("failed to build request", err).WithOp(path)
	}
	req.Header.Set(authHeader, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		nuts.L.Errorf("[BHMClient] GET %s failed: %v", path, err)
		return errors.NewTransportError("request failed", err).WithOp(path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.NewTransportError("failed to read response body", err).WithOp(path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		nuts.L.Errorf("[BHMClient] GET %s returned %d: %s", path, resp.StatusCode, snippet(body))
		return errors.NewProtocolError(fmt.Sprintf("unexpected status %d", resp.StatusCode), resp.StatusCode).WithOp(path)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		nuts.L.Errorf("[BHMClient] GET %s: undecodable body (status %d): %s", path, resp.StatusCode, snippet(body))
		return errors.NewDecodeError("failed to decode response", err).
			WithOp(path).
			WithDetails(map[string]any{"status": resp.StatusCode, "snippet": snippet(body)})
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > snippetBytes {
		body = body[:snippetBytes]
	}
	return string(body)
}
