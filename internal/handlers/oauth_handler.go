package handlers

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/entrypath/focustime/internal/signals"
)

// OAuthHandler runs the provider linking flow: it redirects the user to
// Google's consent screen and persists the exchanged credential. The
// engine only consumes credentials; this is the one place they enter.
type OAuthHandler struct {
	*BaseHandler
	oauthConf *oauth2.Config

	mu     sync.Mutex
	states map[string]string // state nonce -> user id
}

// NewOAuthHandler creates a new OAuth linking handler
func NewOAuthHandler(baseHandler *BaseHandler, oauthConf *oauth2.Config) *OAuthHandler {
	return &OAuthHandler{
		BaseHandler: baseHandler,
		oauthConf:   oauthConf,
		states:      make(map[string]string),
	}
}

// RegisterRoutes registers the linking routes
func (h *OAuthHandler) RegisterRoutes() {
	http.HandleFunc("/api/connect", h.handleConnect)
	http.HandleFunc("/oauth/callback", h.handleCallback)
}

// handleConnect starts the consent flow with a single-use state nonce
func (h *OAuthHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleConnect").Logger()

	userID, ok := h.UserID(w, r)
	if !ok {
		return
	}

	state := uuid.NewString()
	h.mu.Lock()
	h.states[state] = userID
	h.mu.Unlock()

	url := h.oauthConf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	handlerLogger.Info().Str("user_id", userID).Msg("Redirecting to provider consent")
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleCallback exchanges the authorization code and persists the
// credential for the user bound to the state nonce.
func (h *OAuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleCallback").Logger()

	state := r.URL.Query().Get("state")
	h.mu.Lock()
	userID, ok := h.states[state]
	delete(h.states, state)
	h.mu.Unlock()
	if !ok {
		handlerLogger.Warn().Msg("Callback with unknown state nonce")
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		handlerLogger.Warn().Str("user_id", userID).Str("error", errParam).Msg("Consent denied")
		signals.EmitCredentialLinked(r.Context(), userID, false)
		h.WriteErrorCode(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return
	}

	code := r.URL.Query().Get("code")
	tok, err := h.oauthConf.Exchange(r.Context(), code)
	if err != nil {
		handlerLogger.Error().Err(err).Str("user_id", userID).Msg("Code exchange failed")
		signals.EmitCredentialLinked(r.Context(), userID, false)
		h.WriteErrorCode(w, http.StatusBadGateway, ErrCodeProviderError)
		return
	}

	if err := h.TokenManager.SaveCredential(userID, tok); err != nil {
		handlerLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist credential")
		h.WriteErrorCode(w, http.StatusInternalServerError, ErrCodeInternal)
		return
	}

	handlerLogger.Info().Str("user_id", userID).Msg("Calendar account linked")
	signals.EmitCredentialLinked(r.Context(), userID, true)
	h.WriteJSON(w, http.StatusOK, map[string]bool{"connected": true})
}
