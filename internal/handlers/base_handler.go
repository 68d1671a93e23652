// Package handlers contains the request orchestrators: thin per-endpoint
// glue that resolves the user's credential and target calendar, invokes
// the gateway, suggester or sync engine, and maps typed failures onto
// the JSON error surface.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/entrypath/focustime/internal/calendar"
	"github.com/entrypath/focustime/internal/database"
	"github.com/entrypath/focustime/internal/logging"
	"github.com/entrypath/focustime/internal/token"
)

// userIDHeader carries the stable user id resolved by the upstream auth
// layer. The engine itself performs no session handling.
const userIDHeader = "X-User-ID"

// BaseHandler contains the collaborators every orchestrator needs
type BaseHandler struct {
	TokenManager *token.Manager
	Targets      *database.CalendarTargetStore
	Gateway      calendar.Gateway
	logger       zerolog.Logger
}

// NewBaseHandler creates a common base handler with shared components
func NewBaseHandler(tokenManager *token.Manager, targets *database.CalendarTargetStore, gateway calendar.Gateway) *BaseHandler {
	return &BaseHandler{
		TokenManager: tokenManager,
		Targets:      targets,
		Gateway:      gateway,
		logger:       logging.GetLogger("handlers"),
	}
}

// errorBody is the JSON error envelope
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteErrorCode writes the error envelope for a known code
func (h *BaseHandler) WriteErrorCode(w http.ResponseWriter, status int, code string) {
	h.WriteJSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: ErrorMessages[code],
	}})
}

// WriteError maps err onto the error surface and writes the envelope
func (h *BaseHandler) WriteError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", code).Msg("Request failed")
	} else {
		logger.Warn().Err(err).Str("code", code).Msg("Request failed")
	}
	h.WriteErrorCode(w, status, code)
}

// UserID extracts the user identity from the request. A missing header
// writes a 401 and returns false.
func (h *BaseHandler) UserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.logger.Warn().Str("path", r.URL.Path).Msg("Request without user identity header")
		h.WriteErrorCode(w, http.StatusUnauthorized, ErrCodeUnauthorized)
		return "", false
	}
	return userID, true
}

// RequireAccess resolves a valid access token and the target calendar
// for the user. Every calendar-touching orchestrator goes through here.
func (h *BaseHandler) RequireAccess(ctx context.Context, userID string) (*oauth2.Token, *database.CalendarTarget, error) {
	tok, err := h.TokenManager.GetValidAccessToken(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	target, err := h.Targets.GetTarget(userID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, errNoCalendarSelected
	}

	return tok, target, nil
}

// parseWindow reads RFC3339 start/end query parameters
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must be after start")
	}
	return start, end, nil
}
