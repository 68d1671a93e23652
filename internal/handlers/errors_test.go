package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrypath/focustime/internal/calendar"
	"github.com/entrypath/focustime/internal/token"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not connected",
			err:        token.ErrNotConnected,
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeNotConnected,
		},
		{
			name:       "wrapped not connected",
			err:        fmt.Errorf("resolving token: %w", token.ErrNotConnected),
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeNotConnected,
		},
		{
			name:       "no calendar selected",
			err:        errNoCalendarSelected,
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeNoCalendarSelected,
		},
		{
			name:       "insufficient scope",
			err:        &calendar.ScopeError{Status: 403, Message: "insufficient scopes"},
			wantStatus: http.StatusForbidden,
			wantCode:   ErrCodeNeedReconnect,
		},
		{
			name:       "provider rejected the token",
			err:        &calendar.ProviderError{Status: 401, Message: "Invalid Credentials"},
			wantStatus: http.StatusForbidden,
			wantCode:   ErrCodeNeedReconnect,
		},
		{
			name:       "provider backend failure",
			err:        &calendar.ProviderError{Status: 500, Message: "Backend Error"},
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeProviderError,
		},
		{
			name:       "transport failure",
			err:        &calendar.TransportError{Err: errors.New("connection refused")},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   ErrCodeTransportError,
		},
		{
			name:       "anything else",
			err:        errors.New("unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, code)
		})
	}
}

func TestErrorMessagesCoverAllCodes(t *testing.T) {
	for _, code := range []string{
		ErrCodeUnauthorized,
		ErrCodeInvalidRequest,
		ErrCodeNotConnected,
		ErrCodeNeedReconnect,
		ErrCodeNoCalendarSelected,
		ErrCodeProviderError,
		ErrCodeTransportError,
		ErrCodeInternal,
	} {
		assert.NotEmpty(t, ErrorMessages[code], "message for %s", code)
	}
}
