package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/entrypath/focustime/internal/calendar"
)

var testToken = &oauth2.Token{AccessToken: "test-access"}

// fakeGateway is an in-memory calendar standing in for the provider.
// Failure injection is per event title (creates) or id (deletes).
type fakeGateway struct {
	mu          stdsync.Mutex
	events      map[string]calendar.Event
	nextID      int
	failCreates map[string]bool
	failDeletes map[string]bool
}

var _ calendar.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		events:      map[string]calendar.Event{},
		failCreates: map[string]bool{},
		failDeletes: map[string]bool{},
	}
}

func (f *fakeGateway) ListCalendars(ctx context.Context, token *oauth2.Token) ([]calendar.CalendarInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) CreateCalendar(ctx context.Context, token *oauth2.Token, name string) (*calendar.CalendarInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Events(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]calendar.Event, error) {
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

func (f *fakeGateway) FreeBusy(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]calendar.BusyInterval, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) CreateEvent(ctx context.Context, token *oauth2.Token, calendarID string, draft calendar.EventDraft) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates[draft.Title] {
		return nil, &calendar.ProviderError{Status: 500, Message: "injected failure"}
	}
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

func (f *fakeGateway) DeleteEvent(ctx context.Context, token *oauth2.Token, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeletes[eventID] {
		return &calendar.ProviderError{Status: 500, Message: "injected failure"}
	}
	if _, ok := f.events[eventID]; !ok {
		return &calendar.ProviderError{Status: 404, Message: "not found"}
	}
	delete(f.events, eventID)
	return nil
}

func (f *fakeGateway) managedIn(start, end time.Time) []calendar.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []calendar.Event
	for _, ev := range f.events {
		if ev.Managed && ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeGateway) seed(ev calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[ev.ID] = ev
}

var (
	windowStart = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(24 * time.Hour)
)

func draftAt(title string, hour int) calendar.EventDraft {
	return calendar.EventDraft{
		Title: title,
		Start: windowStart.Add(time.Duration(hour) * time.Hour),
		End:   windowStart.Add(time.Duration(hour+1) * time.Hour),
	}
}

func TestReplace_Idempotent(t *testing.T) {
	gw := newFakeGateway()
	engine := NewEngine(gw)

	desired := []calendar.EventDraft{
		draftAt("Focus: applications", 9),
		draftAt("Focus: follow-ups", 14),
	}

	// run the same replace twice; the managed set must equal the desired
	// set both times, never accumulate
	for run := 0; run < 2; run++ {
		report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, desired)
		require.NoError(t, err, "run %d", run)
		assert.Len(t, report.Created, 2, "run %d", run)
		assert.Empty(t, report.Failed, "run %d", run)
		assert.Len(t, gw.managedIn(windowStart, windowEnd), 2, "run %d", run)
	}
}

func TestReplace_UserEventsUntouched(t *testing.T) {
	gw := newFakeGateway()
	gw.seed(calendar.Event{
		ID:    "user-ev",
		Title: "Dentist",
		Start: windowStart.Add(10 * time.Hour),
		End:   windowStart.Add(11 * time.Hour),
	})
	gw.seed(calendar.Event{
		ID:      "old-managed",
		Title:   "Focus: stale",
		Start:   windowStart.Add(9 * time.Hour),
		End:     windowStart.Add(10 * time.Hour),
		Managed: true,
	})
	engine := NewEngine(gw)

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, []calendar.EventDraft{
		draftAt("Focus: fresh", 14),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"old-managed"}, report.Deleted)

	gw.mu.Lock()
	_, userSurvives := gw.events["user-ev"]
	_, staleGone := gw.events["old-managed"]
	gw.mu.Unlock()
	assert.True(t, userSurvives)
	assert.False(t, staleGone)
}

func TestReplace_EmptyDesiredClearsManaged(t *testing.T) {
	gw := newFakeGateway()
	for i := 0; i < 3; i++ {
		gw.seed(calendar.Event{
			ID:      fmt.Sprintf("managed-%d", i),
			Title:   "Focus block",
			Start:   windowStart.Add(time.Duration(9+i) * time.Hour),
			End:     windowStart.Add(time.Duration(10+i) * time.Hour),
			Managed: true,
		})
	}
	engine := NewEngine(gw)

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, nil)
	require.NoError(t, err)
	assert.Len(t, report.Deleted, 3)
	assert.Empty(t, report.Created)
	assert.Empty(t, gw.managedIn(windowStart, windowEnd))
}

func TestReplace_ManagedOutsideWindowSurvives(t *testing.T) {
	gw := newFakeGateway()
	gw.seed(calendar.Event{
		ID:      "tomorrow-managed",
		Title:   "Focus block",
		Start:   windowEnd.Add(9 * time.Hour),
		End:     windowEnd.Add(10 * time.Hour),
		Managed: true,
	})
	engine := NewEngine(gw)

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)

	gw.mu.Lock()
	_, survives := gw.events["tomorrow-managed"]
	gw.mu.Unlock()
	assert.True(t, survives)
}

func TestReplace_CreatedEventsAreManaged(t *testing.T) {
	gw := newFakeGateway()
	engine := NewEngine(gw)

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, []calendar.EventDraft{
		draftAt("Focus block", 9),
	})
	require.NoError(t, err)
	require.Len(t, report.Created, 1)
	assert.True(t, report.Created[0].Managed)
}

func TestReplace_CreateFailureContinues(t *testing.T) {
	gw := newFakeGateway()
	gw.failCreates["Focus: doomed"] = true
	engine := NewEngine(gw)

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, []calendar.EventDraft{
		draftAt("Focus: one", 9),
		draftAt("Focus: doomed", 11),
		draftAt("Focus: three", 14),
	})

	// the failure is surfaced but the remaining creates still happened
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.Created, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "create", report.Failed[0].Op)
	assert.Equal(t, "Focus: doomed", report.Failed[0].Title)
	assert.Len(t, gw.managedIn(windowStart, windowEnd), 2)
}

func TestReplace_DeleteFailureStillCreates(t *testing.T) {
	gw := newFakeGateway()
	gw.seed(calendar.Event{
		ID:      "stuck-managed",
		Title:   "Focus: stuck",
		Start:   windowStart.Add(9 * time.Hour),
		End:     windowStart.Add(10 * time.Hour),
		Managed: true,
	})
	gw.failDeletes["stuck-managed"] = true
	engine := NewEngine(gw)

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, []calendar.EventDraft{
		draftAt("Focus: fresh", 14),
	})

	require.Error(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Deleted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "delete", report.Failed[0].Op)
	assert.Equal(t, "stuck-managed", report.Failed[0].EventID)
	assert.Len(t, report.Created, 1)
}

func TestReplace_ListFailureAborts(t *testing.T) {
	engine := NewEngine(failingListGateway{newFakeGateway()})

	report, err := engine.Replace(context.Background(), testToken, "cal-1", windowStart, windowEnd, []calendar.EventDraft{
		draftAt("Focus block", 9),
	})
	require.Error(t, err)
	assert.Nil(t, report)
}

type failingListGateway struct {
	*fakeGateway
}

func (failingListGateway) Events(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]calendar.Event, error) {
	return nil, &calendar.TransportError{Err: errors.New("connection reset")}
}
