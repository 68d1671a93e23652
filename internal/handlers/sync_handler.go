package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/entrypath/focustime/internal/calendar"
	syncengine "github.com/entrypath/focustime/internal/sync"
)

// SyncHandler replaces the managed events of a window with a desired set
type SyncHandler struct {
	*BaseHandler
	Engine *syncengine.Engine
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(baseHandler *BaseHandler, engine *syncengine.Engine) *SyncHandler {
	return &SyncHandler{BaseHandler: baseHandler, Engine: engine}
}

// RegisterRoutes registers the sync route
func (h *SyncHandler) RegisterRoutes() {
	http.HandleFunc("/api/sync", h.handleSync)
}

// SyncRequest is the body for a managed-event replace
type SyncRequest struct {
	Start  time.Time          `json:"start"`
	End    time.Time          `json:"end"`
	Events []SyncEventRequest `json:"events"`
}

// SyncEventRequest is one desired managed event
type SyncEventRequest struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// SyncResponse reports what the replace did. Partial is set when some
// sub-operations failed; the report lists which, and repeating the call
// is safe.
type SyncResponse struct {
	Partial bool               `json:"partial"`
	Report  *syncengine.Report `json:"report"`
}

func (h *SyncHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleSync").Logger()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		h.WriteErrorCode(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest)
		return
	}

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}
	if !req.End.After(req.Start) {
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}
	for _, ev := range req.Events {
		if ev.Title == "" || !ev.End.After(ev.Start) {
			h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
			return
		}
	}

	tok, target, err := h.RequireAccess(r.Context(), userID)
	if err != nil {
		h.WriteError(w, handlerLogger, err)
		return
	}

	desired := make([]calendar.EventDraft, 0, len(req.Events))
	for _, ev := range req.Events {
		desired = append(desired, calendar.EventDraft{
			Title:       ev.Title,
			Start:       ev.Start,
			End:         ev.End,
			Description: ev.Description,
		})
	}

	report, err := h.Engine.Replace(r.Context(), tok, target.CalendarID, req.Start, req.End, desired)
	if err != nil && report == nil {
		// nothing was applied; surface the typed failure directly
		h.WriteError(w, handlerLogger, err)
		return
	}

	if err != nil {
		handlerLogger.Warn().Err(err).Str("user_id", userID).
			Int("deleted", len(report.Deleted)).
			Int("created", len(report.Created)).
			Int("failed", len(report.Failed)).
			Msg("Sync completed partially")
		h.WriteJSON(w, http.StatusOK, SyncResponse{Partial: true, Report: report})
		return
	}

	handlerLogger.Info().Str("user_id", userID).
		Int("deleted", len(report.Deleted)).
		Int("created", len(report.Created)).
		Msg("Sync completed")
	h.WriteJSON(w, http.StatusOK, SyncResponse{Report: report})
}
