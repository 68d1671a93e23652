package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/entrypath/focustime/internal/calendar"
)

// EventsHandler exposes the gateway passthroughs: event listing,
// free/busy queries and single event creation.
type EventsHandler struct {
	*BaseHandler
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(baseHandler *BaseHandler) *EventsHandler {
	return &EventsHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers event related routes
func (h *EventsHandler) RegisterRoutes() {
	http.HandleFunc("/api/events", h.handleEvents)
	http.HandleFunc("/api/freebusy", h.handleFreeBusy)
}

// CreateEventRequest is the body for creating a single event
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

func (h *EventsHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListEvents(w, r)
	case http.MethodPost:
		h.handleCreateEvent(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		h.WriteErrorCode(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest)
	}
}

// handleListEvents returns the events of the target calendar in a window
func (h *EventsHandler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleListEvents").Logger()

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	tok, target, err := h.RequireAccess(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	events, err := h.Gateway.Events(r.Context(), tok, target.CalendarID, start, end)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// handleCreateEvent creates one event on the target calendar
func (h *EventsHandler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleCreateEvent").Logger()

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || !req.End.After(req.Start) {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	tok, target, err := h.RequireAccess(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	created, err := h.Gateway.CreateEvent(r.Context(), tok, target.CalendarID, calendar.EventDraft{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		Description: req.Description,
	})
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info().Str("user_id", userID).Str("event_id", created.ID).Msg("Event created")
	h.WriteJSON(w, http.StatusCreated, created)
}

// handleFreeBusy returns the busy intervals of the target calendar in a window
func (h *EventsHandler) handleFreeBusy(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleFreeBusy").Logger()

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		h.WriteErrorCode(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest)
		return
	}

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	tok, target, err := h.RequireAccess(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	busy, err := h.Gateway.FreeBusy(r.Context(), tok, target.CalendarID, start, end)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"busy": busy})
}
