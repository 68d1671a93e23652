// Package sync idempotently replaces the set of application-managed
// events inside a calendar window with a desired set, leaving
// user-authored events untouched.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/oauth2"

	"github.com/entrypath/focustime/internal/calendar"
	"github.com/entrypath/focustime/internal/logging"
	"github.com/entrypath/focustime/internal/metrics"
)

// deleteConcurrency bounds parallel deletions against the provider
const deleteConcurrency = 2

// OpFailure records one failed sub-operation of a replace
type OpFailure struct {
	Op      string `json:"op"` // "delete" or "create"
	EventID string `json:"event_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Reason  string `json:"reason"`
	err     error
}

// Report manifests what a replace actually did. Callers inspect it to
// decide whether a partial resync is acceptable or worth repeating;
// replace is at-least-once and safe to repeat.
type Report struct {
	Deleted []string         `json:"deleted"`
	Created []calendar.Event `json:"created"`
	Failed  []OpFailure      `json:"failed,omitempty"`
}

// Engine performs managed-event replacement through a calendar gateway
type Engine struct {
	gateway calendar.Gateway
	logger  zerolog.Logger
}

// NewEngine creates a new sync engine
func NewEngine(gateway calendar.Gateway) *Engine {
	return &Engine{
		gateway: gateway,
		logger:  logging.GetLogger("sync"),
	}
}

// Replace makes the set of managed events inside [start, end) equal
// exactly the desired set: every existing managed event in the window is
// deleted, then one event per desired entry is created in the order
// given. Provider ids are not preserved across calls. Already-applied
// deletions are never rolled back; failures are collected in the report
// and joined into the returned error so the caller can retry the
// remainder.
func (e *Engine) Replace(ctx context.Context, token *oauth2.Token, calendarID string, start, end time.Time, desired []calendar.EventDraft) (*Report, error) {
	logger := e.logger.With().Str("calendar_id", calendarID).Logger()
	logger.Info().Time("start", start).Time("end", end).Int("desired", len(desired)).Msg("Starting managed-event replace")

	existing, err := e.gateway.Events(ctx, token, calendarID, start, end)
	if err != nil {
		return nil, err
	}

	var managed []calendar.Event
	for _, ev := range existing {
		if ev.Managed {
			managed = append(managed, ev)
		}
	}
	logger.Debug().Int("existing", len(existing)).Int("managed", len(managed)).Msg("Fetched events in window")

	report := &Report{Deleted: []string{}, Created: []calendar.Event{}}
	var errs *multierror.Error

	deleted := e.deleteManaged(ctx, token, calendarID, managed, report, logger)
	if deleted.failures != nil {
		errs = multierror.Append(errs, deleted.failures...)
	}

	// creations run in order; a failed create is recorded and skipped,
	// the rest of the desired set is still attempted
	for _, draft := range desired {
		draft.Managed = true
		created, err := e.gateway.CreateEvent(ctx, token, calendarID, draft)
		if err != nil {
			metrics.SyncOperations.WithLabelValues("create", metrics.ResultError).Inc()
			logger.Warn().Err(err).Str("title", draft.Title).Msg("Failed to create managed event")
			report.Failed = append(report.Failed, OpFailure{
				Op:     "create",
				Title:  draft.Title,
				Reason: err.Error(),
				err:    err,
			})
			errs = multierror.Append(errs, err)
			continue
		}
		metrics.SyncOperations.WithLabelValues("create", metrics.ResultOK).Inc()
		report.Created = append(report.Created, *created)
	}

	logger.Info().
		Int("deleted", len(report.Deleted)).
		Int("created", len(report.Created)).
		Int("failed", len(report.Failed)).
		Msg("Managed-event replace finished")

	return report, errs.ErrorOrNil()
}

type deleteResult struct {
	failures []error
}

// deleteManaged removes the given managed events, at most
// deleteConcurrency at a time. Deletion order is irrelevant, so they
// run concurrently.
func (e *Engine) deleteManaged(ctx context.Context, token *oauth2.Token, calendarID string, managed []calendar.Event, report *Report, logger zerolog.Logger) deleteResult {
	if len(managed) == 0 {
		return deleteResult{}
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		sem         = make(chan struct{}, deleteConcurrency)
		deleteCount = atomic.NewInt64(0)
		result      deleteResult
	)

	for _, ev := range managed {
		wg.Add(1)
		go func(ev calendar.Event) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := e.gateway.DeleteEvent(ctx, token, calendarID, ev.ID); err != nil {
				metrics.SyncOperations.WithLabelValues("delete", metrics.ResultError).Inc()
				logger.Warn().Err(err).Str("event_id", ev.ID).Msg("Failed to delete managed event")
				mu.Lock()
				report.Failed = append(report.Failed, OpFailure{
					Op:      "delete",
					EventID: ev.ID,
					Title:   ev.Title,
					Reason:  err.Error(),
					err:     err,
				})
				result.failures = append(result.failures, err)
				mu.Unlock()
				return
			}

			metrics.SyncOperations.WithLabelValues("delete", metrics.ResultOK).Inc()
			deleteCount.Inc()
			mu.Lock()
			report.Deleted = append(report.Deleted, ev.ID)
			mu.Unlock()
		}(ev)
	}

	wg.Wait()
	logger.Debug().Int64("deleted", deleteCount.Load()).Msg("Managed event deletions finished")
	return result
}
