// FilePath: api/resources/api.resource.entities.go
package resources

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/hubservice"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// EntityHandlers encapsulates the hive and sensor HTTP handlers
type EntityHandlers struct {
	hubservice *hubservice.HubService
	decoder    *schema.Decoder
}

// ListEntities returns apiaries, hives and sensors.
func (h *EntityHandlers) ListEntities(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	overview, err := h.hubservice.ListEntities(r.Context())
	if err != nil {
		respondWithError(w, toAppError(err, "failed to list entities").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, overview)
}

// GetEntityHistory returns the readings of one entity, newest first.
// Query: from, to (RFC3339), limit.
func (h *EntityHandlers) GetEntityHistory(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid entity id", err).WithRequestID(requestID))
		return
	}

	var filters models.HistoryFilters
	if err := h.decoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	rows, err := h.hubservice.GetEntityHistory(r.Context(), id, filters)
	if err != nil {
		respondWithError(w, toAppError(err, "failed to read history").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}
