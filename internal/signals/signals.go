// Package signals carries the engine's in-process events: a user linked
// their calendar account, or chose a target calendar.
package signals

import (
	"context"

	"github.com/maniartech/signals"
)

// CredentialLinkedData accompanies a successful provider link
type CredentialLinkedData struct {
	UserID  string
	Success bool
}

// CalendarSelectedData accompanies a calendar selection or creation
type CalendarSelectedData struct {
	UserID     string
	CalendarID string
}

var CredentialLinked = signals.New[CredentialLinkedData]()
var CalendarSelected = signals.New[CalendarSelectedData]()

// EmitCredentialLinked emits a signal after an OAuth callback persisted
// (or failed to persist) a credential.
func EmitCredentialLinked(ctx context.Context, userID string, success bool) {
	CredentialLinked.Emit(ctx, CredentialLinkedData{UserID: userID, Success: success})
}

// EmitCalendarSelected emits a signal after a target calendar changed
func EmitCalendarSelected(ctx context.Context, userID, calendarID string) {
	CalendarSelected.Emit(ctx, CalendarSelectedData{UserID: userID, CalendarID: calendarID})
}

// OnCredentialLinked registers a handler for credential link events
func OnCredentialLinked(handler func(ctx context.Context, data CredentialLinkedData), key ...string) {
	if len(key) > 0 {
		CredentialLinked.AddListener(handler, key[0])
	} else {
		CredentialLinked.AddListener(handler)
	}
}

// OnCalendarSelected registers a handler for calendar selection events
func OnCalendarSelected(handler func(ctx context.Context, data CalendarSelectedData), key ...string) {
	if len(key) > 0 {
		CalendarSelected.AddListener(handler, key[0])
	} else {
		CalendarSelected.AddListener(handler)
	}
}
