package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sportsmeet/internal/app/attendance"
	"github.com/okian/sportsmeet/internal/domain/model"
)

type eventsResponse struct {
	Events []model.CatalogEvent `json:"events"`
}

type registrantsResponse struct {
	EventID     string                  `json:"eventId"`
	Registrants []attendance.Registrant `json:"registrants"`
}

// EventsHandler serves the event catalog and per-event registrant lists.
type EventsHandler struct {
	catalog      CatalogDependencies
	participants ParticipantDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(catalog CatalogDependencies, participants ParticipantDependencies) *EventsHandler {
	return &EventsHandler{catalog: catalog, participants: participants}
}

// HandleListEvents handles GET /events requests.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.Events(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []model.CatalogEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// HandleRegistrants handles GET /events/{eventId}/registrants requests.
func (h *EventsHandler) HandleRegistrants(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	rows, err := h.participants.Registrants(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []attendance.Registrant{}
	}
	writeJSON(w, http.StatusOK, registrantsResponse{EventID: eventID, Registrants: rows})
}
