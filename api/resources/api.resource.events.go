// FilePath: api/resources/api.resource.events.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/hubservice"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// EventHandlers encapsulates the timeline event HTTP handlers
type EventHandlers struct {
	hubservice *hubservice.HubService
	decoder    *schema.Decoder
}

// ListEvents returns events newest first. Query: from, to, tag, limit.
func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var filters models.EventFilters
	if err := h.decoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	events, err := h.hubservice.ListEvents(r.Context(), filters)
	if err != nil {
		respondWithError(w, toAppError(err, "failed to list events").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

// CreateEvent records a new timeline event.
func (h *EventHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	requestID := nuts.NID("req", 12)

	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.CreateEvent(r.Context(), &event); err != nil {
		respondWithError(w, toAppError(err, "failed to create event").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusCreated, event)
}
