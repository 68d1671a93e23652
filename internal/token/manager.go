// Package token resolves a currently valid access credential for a user,
// refreshing and persisting it when it is about to expire.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/entrypath/focustime/internal/database"
	"github.com/entrypath/focustime/internal/logging"
	"github.com/entrypath/focustime/internal/metrics"
)

// ErrNotConnected is returned when no usable credential exists for the
// user: nothing stored, no access token on the stored record, or a
// refresh that failed. The caller should prompt the user to (re)link
// their calendar; the condition is never fatal to the process.
var ErrNotConnected = errors.New("calendar provider not connected")

// DefaultRefreshSkew is how long before expiry a token is already
// treated as expiring. Refreshing this early removes the race where a
// token expires between the freshness check and the provider call.
const DefaultRefreshSkew = 5 * time.Minute

// Manager handles per-user OAuth credential lookup and refreshing
type Manager struct {
	store       *database.CredentialStore
	oauthConfig *oauth2.Config
	refreshSkew time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewManager creates a new token Manager. A non-positive refreshSkew
// falls back to DefaultRefreshSkew.
func NewManager(store *database.CredentialStore, oauthConfig *oauth2.Config, refreshSkew time.Duration) *Manager {
	if refreshSkew <= 0 {
		refreshSkew = DefaultRefreshSkew
	}
	return &Manager{
		store:       store,
		oauthConfig: oauthConfig,
		refreshSkew: refreshSkew,
		now:         time.Now,
		logger:      logging.GetLogger("token"),
	}
}

// HasCredential reports whether a credential is stored for the user
func (m *Manager) HasCredential(userID string) (bool, error) {
	return m.store.HasCredential(userID)
}

// SaveCredential persists a freshly linked credential for the user
func (m *Manager) SaveCredential(userID string, tok *oauth2.Token) error {
	return m.store.SaveCredential(userID, tok)
}

// ClearCredential drops the stored credential for the user
func (m *Manager) ClearCredential(userID string) error {
	return m.store.ClearCredential(userID)
}

// GetValidAccessToken returns an access token usable for provider calls.
//
// A token whose expiry is inside the refresh window is refreshed ahead
// of use and the result persisted. A refresh failure is reported as
// ErrNotConnected rather than surfaced raw: the grant is likely revoked
// and the user has to relink. A stale token without a refresh token is
// returned as-is; the subsequent provider call fails with an auth error
// the orchestrator maps to a reconnect signal.
func (m *Manager) GetValidAccessToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	tok, err := m.store.GetCredential(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve credential: %w", err)
	}

	if tok == nil || tok.AccessToken == "" {
		m.logger.Debug().Str("user_id", userID).Msg("No stored credential")
		return nil, ErrNotConnected
	}

	if !m.expiring(tok) {
		return tok, nil
	}

	if tok.RefreshToken == "" {
		m.logger.Warn().Str("user_id", userID).Time("expiry", tok.Expiry).
			Msg("Token expiring with no refresh token, returning as-is")
		return tok, nil
	}

	newTok, err := m.refresh(ctx, tok)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.ResultError).Inc()
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("Token refresh failed, treating as not connected")
		return nil, ErrNotConnected
	}
	metrics.TokenRefreshes.WithLabelValues(metrics.ResultOK).Inc()

	if err := m.store.SaveCredential(userID, newTok); err != nil {
		return nil, fmt.Errorf("failed to save refreshed credential: %w", err)
	}
	m.logger.Debug().Str("user_id", userID).Time("expiry", newTok.Expiry).Msg("Token refreshed and persisted")

	return newTok, nil
}

// expiring reports whether the token's expiry falls inside the refresh
// window. Tokens without an expiry never expire from our point of view.
func (m *Manager) expiring(tok *oauth2.Token) bool {
	if tok.Expiry.IsZero() {
		return false
	}
	return tok.Expiry.Sub(m.now()) < m.refreshSkew
}

// refresh exchanges the refresh token for a fresh access token. The
// in-memory copy handed to the token source carries only the refresh
// token so the exchange happens even while the old access token is
// still technically valid.
func (m *Manager) refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	src := m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	newTok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}

	// Google omits the refresh token on refresh responses; keep the one
	// we already hold so the credential stays refreshable.
	if newTok.RefreshToken == "" {
		newTok.RefreshToken = tok.RefreshToken
	}

	return newTok, nil
}
