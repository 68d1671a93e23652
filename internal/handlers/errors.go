package handlers

import (
	"errors"
	"net/http"

	"github.com/entrypath/focustime/internal/calendar"
	"github.com/entrypath/focustime/internal/token"
)

// Error codes surfaced to the main application
const (
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeNotConnected       = "not_connected"
	ErrCodeNeedReconnect      = "need_reconnect"
	ErrCodeNoCalendarSelected = "no_calendar_selected"
	ErrCodeProviderError      = "provider_error"
	ErrCodeTransportError     = "transport_error"
	ErrCodeInternal           = "internal_error"
)

// errNoCalendarSelected marks a user without a target calendar
var errNoCalendarSelected = errors.New("no calendar selected")

// ErrorMessages maps error codes to messages shown by the main app
var ErrorMessages = map[string]string{
	ErrCodeUnauthorized:       "Missing or invalid user identity.",
	ErrCodeInvalidRequest:     "Invalid request.",
	ErrCodeNotConnected:       "Calendar is not connected. Please link your Google Calendar.",
	ErrCodeNeedReconnect:      "Calendar permissions are insufficient. Please reconnect your Google Calendar.",
	ErrCodeNoCalendarSelected: "No target calendar selected. Please choose a calendar first.",
	ErrCodeProviderError:      "The calendar provider returned an error. Please try again later.",
	ErrCodeTransportError:     "Could not reach the calendar provider. Please try again.",
	ErrCodeInternal:           "An internal error occurred.",
}

// mapError translates the engine's typed failures into the HTTP error
// surface: not_connected asks the user to link, need_reconnect to
// re-consent, transport_error is safe to retry, provider_error is not.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrNotConnected):
		return http.StatusConflict, ErrCodeNotConnected
	case errors.Is(err, errNoCalendarSelected):
		return http.StatusConflict, ErrCodeNoCalendarSelected
	}

	var scopeErr *calendar.ScopeError
	if errors.As(err, &scopeErr) {
		return http.StatusForbidden, ErrCodeNeedReconnect
	}

	var transportErr *calendar.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusGatewayTimeout, ErrCodeTransportError
	}

	var providerErr *calendar.ProviderError
	if errors.As(err, &providerErr) {
		// a 401 from the provider means the (possibly stale) token was
		// rejected; the user has to reconnect rather than retry
		if providerErr.Status == http.StatusUnauthorized {
			return http.StatusForbidden, ErrCodeNeedReconnect
		}
		return http.StatusBadGateway, ErrCodeProviderError
	}

	return http.StatusInternalServerError, ErrCodeInternal
}
