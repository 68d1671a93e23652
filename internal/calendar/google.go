package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/entrypath/focustime/internal/constants"
	"github.com/entrypath/focustime/internal/logging"
	"github.com/entrypath/focustime/internal/metrics"
)

// GoogleGateway is the Google Calendar implementation of Gateway. A
// fresh API client is built per call from the supplied token; nothing
// is cached across requests, so a token refreshed by a concurrent
// request is picked up immediately.
type GoogleGateway struct {
	opts   []option.ClientOption
	logger zerolog.Logger
}

var _ Gateway = (*GoogleGateway)(nil)

// NewGoogleGateway creates a Google-backed gateway. Extra client options
// (a custom endpoint, a test HTTP client) are appended to every call.
func NewGoogleGateway(opts ...option.ClientOption) *GoogleGateway {
	return &GoogleGateway{
		opts:   opts,
		logger: logging.GetLogger("calendar-gateway"),
	}
}

func (g *GoogleGateway) service(ctx context.Context, token *oauth2.Token) (*gcal.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(token)),
	}, g.opts...)
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return srv, nil
}

func observe(operation string, err error) {
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ProviderCalls.WithLabelValues(operation, result).Inc()
}

// ListCalendars fetches the calendars visible to the user
func (g *GoogleGateway) ListCalendars(ctx context.Context, token *oauth2.Token) ([]CalendarInfo, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	list, err := srv.CalendarList.List().Context(ctx).Do()
	observe("list_calendars", err)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Calendar list failed")
		return nil, translateError(err)
	}

	calendars := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, CalendarInfo{
			ID:      item.Id,
			Name:    item.Summary,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

// CreateCalendar creates a new secondary calendar with the given name
func (g *GoogleGateway) CreateCalendar(ctx context.Context, token *oauth2.Token, name string) (*CalendarInfo, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	created, err := srv.Calendars.Insert(&gcal.Calendar{Summary: name}).Context(ctx).Do()
	observe("create_calendar", err)
	if err != nil {
		g.logger.Warn().Err(err).Str("name", name).Msg("Calendar creation failed")
		return nil, translateError(err)
	}

	g.logger.Info().Str("calendar_id", created.Id).Str("name", created.Summary).Msg("Calendar created")
	return &CalendarInfo{ID: created.Id, Name: created.Summary}, nil
}

// Events lists the events of a calendar inside [start, end), expanded to
// single instances and ordered by start time.
func (g *GoogleGateway) Events(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]Event, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	list, err := srv.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	observe("list_events", err)
	if err != nil {
		g.logger.Warn().Err(err).Str("calendar_id", calendarID).Msg("Event list failed")
		return nil, translateError(err)
	}

	events := make([]Event, 0, len(list.Items))
	for _, item := range list.Items {
		ev, err := fromProviderEvent(item)
		if err != nil {
			g.logger.Warn().Err(err).Str("event_id", item.Id).Msg("Skipping event with unparseable times")
			continue
		}
		events = append(events, *ev)
	}
	return events, nil
}

// FreeBusy queries the busy intervals of a calendar inside [start, end).
// The provider orders intervals by production; callers must not assume
// they are sorted or disjoint.
func (g *GoogleGateway) FreeBusy(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time) ([]BusyInterval, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	observe("freebusy", err)
	if err != nil {
		g.logger.Warn().Err(err).Str("calendar_id", calendarID).Msg("Free/busy query failed")
		return nil, translateError(err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, nil
	}

	intervals := make([]BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		periodStart, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy start %q: %w", period.Start, err)
		}
		periodEnd, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy end %q: %w", period.End, err)
		}
		intervals = append(intervals, BusyInterval{Start: periodStart, End: periodEnd})
	}
	return intervals, nil
}

// CreateEvent inserts one event. Managed drafts carry the application
// marker in their private extended properties.
func (g *GoogleGateway) CreateEvent(ctx context.Context, token *oauth2.Token, calendarID string, draft EventDraft) (*Event, error) {
	srv, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	payload := &gcal.Event{
		Summary:     draft.Title,
		Description: draft.Description,
		Start:       &gcal.EventDateTime{DateTime: draft.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: draft.End.Format(time.RFC3339)},
	}
	if draft.Managed {
		payload.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{"app": constants.AppIdentifier},
		}
	}

	created, err := srv.Events.Insert(calendarID, payload).Context(ctx).Do()
	observe("create_event", err)
	if err != nil {
		g.logger.Warn().Err(err).Str("calendar_id", calendarID).Str("title", draft.Title).Msg("Event creation failed")
		return nil, translateError(err)
	}

	ev, err := fromProviderEvent(created)
	if err != nil {
		return nil, fmt.Errorf("provider returned unparseable event times: %w", err)
	}
	return ev, nil
}

// DeleteEvent removes one event by id
func (g *GoogleGateway) DeleteEvent(ctx context.Context, token *oauth2.Token, calendarID, eventID string) error {
	srv, err := g.service(ctx, token)
	if err != nil {
		return err
	}

	err = srv.Events.Delete(calendarID, eventID).Context(ctx).Do()
	observe("delete_event", err)
	if err != nil {
		g.logger.Warn().Err(err).Str("calendar_id", calendarID).Str("event_id", eventID).Msg("Event deletion failed")
		return translateError(err)
	}
	return nil
}

// fromProviderEvent maps a provider event onto the gateway type. Timed
// events carry RFC3339 date-times; all-day events carry bare dates.
func fromProviderEvent(item *gcal.Event) (*Event, error) {
	start, err := parseEventTime(item.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseEventTime(item.End)
	if err != nil {
		return nil, err
	}

	managed := false
	if item.ExtendedProperties != nil && item.ExtendedProperties.Private != nil {
		managed = item.ExtendedProperties.Private["app"] == constants.AppIdentifier
	}

	return &Event{
		ID:          item.Id,
		Title:       item.Summary,
		Start:       start,
		End:         end,
		Description: item.Description,
		Managed:     managed,
	}, nil
}

func parseEventTime(edt *gcal.EventDateTime) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("event has no time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		return time.ParseInLocation("2006-01-02", edt.Date, time.Local)
	}
	return time.Time{}, fmt.Errorf("event time has neither dateTime nor date")
}
