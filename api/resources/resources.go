// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/schema"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Entities    *EntityHandlers
	Events      *EventHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     http.Handler

	hubservice *hubservice.HubService
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	dec := newQueryDecoder()
	return &Resources{
		Entities:    &EntityHandlers{hubservice: svc, decoder: dec},
		Events:      &EventHandlers{hubservice: svc, decoder: dec},
		HealthCheck: healthCheck,
		hubservice:  svc,
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h http.Handler) {
	r.Metrics = h
}

// Status reports the outcome of the latest job runs.
func (r *Resources) Status(w http.ResponseWriter, req *http.Request) {
	respondWithJSON(w, http.StatusOK, r.hubservice.Status.Snapshot(nuts.GetVersion()))
}

// NotFound answers unknown routes with a JSON error.
func (r *Resources) NotFound(w http.ResponseWriter, req *http.Request) {
	respondWithError(w, errors.NewNotFoundError("route not found: "+req.URL.Path, nil).WithRequestID(nuts.NID("req", 12)))
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": nuts.GetVersion()})
}

// newQueryDecoder decodes query strings into filter structs. Times are
// RFC3339.
func newQueryDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	dec.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t.UTC())
	})
	return dec
}

// toAppError keeps typed errors and maps everything else to an internal error.
func toAppError(err error, fallback string) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.NewInternalError(fallback, err)
}

func respondWithError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
