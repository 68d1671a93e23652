package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/entrypath/focustime/internal/calendar"
	"github.com/entrypath/focustime/internal/constants"
	"github.com/entrypath/focustime/internal/database"
	"github.com/entrypath/focustime/internal/token"
)

const testUserID = "user-1"

// fakeGateway is an in-memory provider used by the orchestrator tests.
// A non-nil err makes every call fail with it.
type fakeGateway struct {
	mu        stdsync.Mutex
	calendars []calendar.CalendarInfo
	events    map[string]calendar.Event
	busy       []calendar.BusyInterval
	nextID     int
	err        error
	failCreate bool
}

var _ calendar.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{events: map[string]calendar.Event{}}
}

func (f *fakeGateway) ListCalendars(ctx context.Context, tok *oauth2.Token) ([]calendar.CalendarInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.calendars, nil
}

func (f *fakeGateway) CreateCalendar(ctx context.Context, tok *oauth2.Token, name string) (*calendar.CalendarInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	info := calendar.CalendarInfo{ID: fmt.Sprintf("cal-%d", f.nextID), Name: name}
	f.calendars = append(f.calendars, info)
	return &info, nil
}

func (f *fakeGateway) Events(ctx context.Context, tok *oauth2.Token, calendarID string, start, end time.Time) ([]calendar.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []calendar.Event
	for _, ev := range f.events {
		if ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeGateway) FreeBusy(ctx context.Context, tok *oauth2.Token, calendarID string, start, end time.Time) ([]calendar.BusyInterval, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.busy, nil
}

func (f *fakeGateway) CreateEvent(ctx context.Context, tok *oauth2.Token, calendarID string, draft calendar.EventDraft) (*calendar.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.failCreate {
		return nil, &calendar.ProviderError{Status: 500, Message: "injected create failure"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ev := calendar.Event{
		ID:          fmt.Sprintf("ev-%d", f.nextID),
		Title:       draft.Title,
		Start:       draft.Start,
		End:         draft.End,
		Description: draft.Description,
		Managed:     draft.Managed,
	}
	f.events[ev.ID] = ev
	return &ev, nil
}

func (f *fakeGateway) DeleteEvent(ctx context.Context, tok *oauth2.Token, calendarID, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return &calendar.ProviderError{Status: 404, Message: "not found"}
	}
	delete(f.events, eventID)
	return nil
}

// testEnv bundles a migrated database, stores and a fake gateway behind
// a ready-to-use base handler.
type testEnv struct {
	base        *BaseHandler
	gateway     *fakeGateway
	credentials *database.CredentialStore
	targets     *database.CalendarTargetStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.NewDefaultOptions(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	require.NoError(t, db.MigrateDatabase())

	credentials, err := database.NewCredentialStore(db)
	require.NoError(t, err)
	targets, err := database.NewCalendarTargetStore(db)
	require.NoError(t, err)

	gateway := newFakeGateway()
	manager := token.NewManager(credentials, &oauth2.Config{ClientID: "test"}, token.DefaultRefreshSkew)

	return &testEnv{
		base:        NewBaseHandler(manager, targets, gateway),
		gateway:     gateway,
		credentials: credentials,
		targets:     targets,
	}
}

func tokenFreshForAnHour() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: "test-access",
		Expiry:      time.Now().Add(time.Hour),
	}
}

// linkUser stores a fresh credential and selects a target calendar so
// RequireAccess succeeds without touching the network.
func (env *testEnv) linkUser(t *testing.T) {
	t.Helper()
	require.NoError(t, env.credentials.SaveCredential(testUserID, tokenFreshForAnHour()))
	require.NoError(t, env.targets.SaveTarget(testUserID, constants.ProviderGoogle, "cal-target"))
}

var errUnreachable = errors.New("unreachable for test")
