package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/entrypath/focustime/internal/suggest"
)

// SuggestionsHandler computes work-block suggestions for a day from the
// target calendar's busy intervals.
type SuggestionsHandler struct {
	*BaseHandler
	defaults suggest.Options
}

// NewSuggestionsHandler creates a new suggestions handler. The defaults
// come from configuration; individual requests may tighten them.
func NewSuggestionsHandler(baseHandler *BaseHandler, defaults suggest.Options) *SuggestionsHandler {
	return &SuggestionsHandler{BaseHandler: baseHandler, defaults: defaults}
}

// RegisterRoutes registers the suggestions route
func (h *SuggestionsHandler) RegisterRoutes() {
	http.HandleFunc("/api/suggestions", h.handleSuggestions)
}

func (h *SuggestionsHandler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleSuggestions").Logger()

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		h.WriteErrorCode(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest)
		return
	}

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	loc := h.defaults.Location
	if loc == nil {
		loc = time.Local
	}

	day, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
	if err != nil {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	opts := h.defaults
	if v := r.URL.Query().Get("min_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
			return
		}
		opts.MinDuration = time.Duration(minutes) * time.Minute
	}
	if v := r.URL.Query().Get("max"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil || max <= 0 {
			h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
			return
		}
		opts.MaxSuggestions = max
	}

	tok, target, err := h.RequireAccess(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	// query a full day of busy time; the suggester clips to the window,
	// so intervals straddling the window edges still block free time
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	busy, err := h.Gateway.FreeBusy(r.Context(), tok, target.CalendarID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	blocks := suggest.Suggest(busy, day, opts)
	handlerLogger.Debug().Str("user_id", userID).Int("busy", len(busy)).Int("blocks", len(blocks)).Msg("Suggestions computed")

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": blocks})
}
