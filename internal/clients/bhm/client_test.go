package bhm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.SourceConfig{
		BaseURL:        srv.URL + "/",
		Token:          "secret",
		Entity:         models.EntityKindHives,
		Attributes:     []string{"weight", "tempIn"},
		RequestTimeout: 2 * time.Second,
	})
}

func TestListEntities(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hives" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Auth-Token"); got != "secret" {
			t.Errorf("auth header = %q", got)
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`[{"id":30522,"name":"Stock 1"},{"id":30523,"name":"Stock 2","extra":true}]`))
	})

	entities, err := c.ListEntities(context.Background())
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(entities) != 2 || entities[0].ID != 30522 || entities[1].Name != "Stock 2" {
		t.Fatalf("unexpected entities %+v", entities)
	}
	if raw := entities[1].RawJSON(); raw["extra"] != true {
		t.Errorf("raw payload not kept: %v", raw)
	}
}

func TestFetchHistoryQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hives/30522/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.RawQuery != "attributes=weight;tempIn&limit=1000&reverse=true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"time": 1704110400000, "weight": 42.17, "tempIn": 34.5},
		})
	})

	records, err := c.FetchHistory(context.Background(), 30522, 1000, nil)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	h, err := models.HistoryFromRecord(30522, records[0])
	if err != nil {
		t.Fatalf("HistoryFromRecord: %v", err)
	}
	if !h.Time.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) || *h.Weight != 42.17 {
		t.Errorf("unexpected row %+v", h)
	}
}

func TestErrorsAreTyped(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    errors.ErrorType
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
			want: errors.ErrorTypeProtocol,
		},
		{
			name: "html body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>maintenance</html>"))
			},
			want: errors.ErrorTypeDecode,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
			want: errors.ErrorTypeTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			c.WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond})
			_, err := c.FetchHistory(context.Background(), 7, 100, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
			if tt.want == errors.ErrorTypeProtocol {
				var appErr *errors.AppError
				if !stderrors.As(err, &appErr) {
					t.Fatalf("not an AppError: %T", err)
				}
				if d, _ := appErr.Details.(map[string]int); d["status"] != http.StatusUnauthorized {
					t.Errorf("remote status not kept: %v", appErr.Details)
				}
			}
		})
	}
}
