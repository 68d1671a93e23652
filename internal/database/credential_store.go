package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// CredentialStore persists one OAuth credential per user in SQLite.
// The stored value is the oauth2.Token serialized as JSON, the same way
// the provider hands it out.
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(db *DB) (*CredentialStore, error) {
	return &CredentialStore{db: db.Conn()}, nil
}

// SaveCredential upserts the credential for userID. The persisted expiry
// never moves backwards: when the incoming token reports an earlier
// expiry than the stored one (two requests racing a refresh, the slower
// writer carrying the older token), the stored expiry is kept.
func (s *CredentialStore) SaveCredential(userID string, token *oauth2.Token) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	existing, err := s.GetCredential(userID)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Expiry.IsZero() && !token.Expiry.IsZero() && token.Expiry.Before(existing.Expiry) {
		clone := *token
		clone.Expiry = existing.Expiry
		token = &clone
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = s.db.Exec(`
INSERT INTO oauth_credentials (user_id, token_data, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id) DO UPDATE SET
token_data = excluded.token_data,
updated_at = CURRENT_TIMESTAMP`, userID, tokenJSON)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

// GetCredential retrieves the stored credential for userID. A missing row
// yields (nil, nil).
func (s *CredentialStore) GetCredential(userID string) (*oauth2.Token, error) {
	var tokenJSON []byte
	err := s.db.QueryRow(`
SELECT token_data FROM oauth_credentials WHERE user_id = ?
`, userID).Scan(&tokenJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve credential: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &token, nil
}

// HasCredential reports whether a credential row exists for userID
func (s *CredentialStore) HasCredential(userID string) (bool, error) {
	token, err := s.GetCredential(userID)
	if err != nil {
		return false, err
	}
	return token != nil, nil
}

// ClearCredential removes the stored credential for userID
func (s *CredentialStore) ClearCredential(userID string) error {
	_, err := s.db.Exec(`DELETE FROM oauth_credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
