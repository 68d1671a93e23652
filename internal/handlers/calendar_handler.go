package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/entrypath/focustime/internal/constants"
	"github.com/entrypath/focustime/internal/signals"
)

// CalendarHandler manages calendar listing, creation and target selection
type CalendarHandler struct {
	*BaseHandler
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(baseHandler *BaseHandler) *CalendarHandler {
	return &CalendarHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers calendar related routes
func (h *CalendarHandler) RegisterRoutes() {
	http.HandleFunc("/api/calendars", h.handleCalendars)
	http.HandleFunc("/api/calendars/select", h.handleSelect)
}

// CreateCalendarRequest is the body for creating a new calendar
type CreateCalendarRequest struct {
	Name string `json:"name"`
}

// SelectCalendarRequest is the body for choosing the target calendar
type SelectCalendarRequest struct {
	CalendarID string `json:"calendar_id"`
}

func (h *CalendarHandler) handleCalendars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		h.WriteErrorCode(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest)
	}
}

// handleList returns the calendars visible to the user, marking the
// current target.
func (h *CalendarHandler) handleList(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleList").Logger()

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	tok, err := h.TokenManager.GetValidAccessToken(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	calendars, err := h.Gateway.ListCalendars(r.Context(), tok)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	selected := ""
	if target, err := h.Targets.GetTarget(userID); err == nil && target != nil {
		selected = target.CalendarID
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"calendars": calendars,
		"selected":  selected,
	})
}

// handleCreate creates a new calendar and makes it the user's target
func (h *CalendarHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleCreate").Logger()

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	var req CreateCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	tok, err := h.TokenManager.GetValidAccessToken(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	created, err := h.Gateway.CreateCalendar(r.Context(), tok, req.Name)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	if err := h.Targets.SaveTarget(userID, constants.ProviderGoogle, created.ID); err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info().Str("user_id", userID).Str("calendar_id", created.ID).Msg("Calendar created and selected")
	signals.EmitCalendarSelected(r.Context(), userID, created.ID)
	h.WriteJSON(w, http.StatusCreated, created)
}

// handleSelect makes an existing calendar the user's target
func (h *CalendarHandler) handleSelect(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleSelect").Logger()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		h.WriteErrorCode(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest)
		return
	}

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	var req SelectCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CalendarID == "" {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	if err := h.Targets.SaveTarget(userID, constants.ProviderGoogle, req.CalendarID); err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	handlerLogger.Info().Str("user_id", userID).Str("calendar_id", req.CalendarID).Msg("Calendar selected")
	signals.EmitCalendarSelected(r.Context(), userID, req.CalendarID)
	h.WriteJSON(w, http.StatusOK, map[string]string{"calendar_id": req.CalendarID})
}
