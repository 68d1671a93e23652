// Package calendar wraps the external calendar provider behind a typed
// capability interface: list/create calendars, list events, free/busy,
// create and delete events. Provider failures are translated into
// ScopeError, ProviderError or TransportError; nothing is retried here.
package calendar

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// CalendarInfo describes one calendar the user can write to
type CalendarInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

// BusyInterval is a half-open [Start, End) range during which the user
// is occupied. The provider orders them by production, not by time, and
// may overlap them.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Event is a provider event as seen through the gateway. Managed is set
// when the event carries this application's marker.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Managed     bool      `json:"managed"`
}

// EventDraft is the payload for creating an event. Managed drafts embed
// the application marker so a later resync can find them again.
type EventDraft struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Managed     bool      `json:"-"`
}

// Gateway is the capability interface over the external calendar
// provider. Every call takes a valid bearer token resolved by the token
// manager; implementations perform no retries and no token refreshing.
type Gateway interface {
	ListCalendars(ctx context.Context, token *oauth2.Token) ([]CalendarInfo, error)
	CreateCalendar(ctx context.Context, token *oauth2.Token, name string) (*CalendarInfo, error)
	Events(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]Event, error)
	FreeBusy(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, token *oauth2.Token, calendarID string, draft EventDraft) (*Event, error)
	DeleteEvent(ctx context.Context, token *oauth2.Token, calendarID, eventID string) error
}
