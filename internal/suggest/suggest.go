// Package suggest computes candidate focus-time blocks for a day from
// the busy intervals reported by the calendar provider. It is pure
// computation: no I/O, no clocks, no provider types beyond the busy
// interval itself.
package suggest

import (
	"sort"
	"time"

	"github.com/entrypath/focustime/internal/calendar"
)

// DefaultMinDuration is the minimum length of a suggested work block,
// sized to a typical focus session.
const DefaultMinDuration = 60 * time.Minute

// Options tunes the suggestion computation
type Options struct {
	// MinDuration drops any free gap shorter than this. Zero means
	// DefaultMinDuration.
	MinDuration time.Duration

	// MaxSuggestions truncates the result to the earliest N blocks.
	// Zero means no limit.
	MaxSuggestions int

	// WindowStart and WindowEnd bound the day window as offsets from
	// local midnight. Both zero means the whole day.
	WindowStart time.Duration
	WindowEnd   time.Duration

	// Location is the user's timezone for resolving the day window.
	// Nil means time.Local.
	Location *time.Location
}

// Block is a suggested contiguous free interval long enough for focused
// work. Blocks are disjoint from every busy interval, from each other,
// and lie inside the requested day window.
type Block struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Suggest computes the free blocks of the given day. Busy intervals may
// arrive unsorted and overlapping; intervals reaching outside the window
// are clipped, not dropped, so adjacent free time is still excluded.
func Suggest(busy []calendar.BusyInterval, day time.Time, opts Options) []Block {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	minDuration := opts.MinDuration
	if minDuration == 0 {
		minDuration = DefaultMinDuration
	}

	windowStart, windowEnd := window(day, opts, loc)
	if !windowEnd.After(windowStart) {
		return nil
	}

	merged := mergeClipped(busy, windowStart, windowEnd)

	var blocks []Block
	cursor := windowStart
	for _, iv := range merged {
		if iv.Start.Sub(cursor) >= minDuration {
			blocks = append(blocks, Block{Start: cursor, End: iv.Start})
		}
		cursor = iv.End
	}
	if windowEnd.Sub(cursor) >= minDuration {
		blocks = append(blocks, Block{Start: cursor, End: windowEnd})
	}

	if opts.MaxSuggestions > 0 && len(blocks) > opts.MaxSuggestions {
		// earliest gaps win: the policy favors blocks earlier in the day
		blocks = blocks[:opts.MaxSuggestions]
	}
	return blocks
}

// window resolves the day window bounds in the user's timezone
func window(day time.Time, opts Options, loc *time.Location) (time.Time, time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	start := midnight.Add(opts.WindowStart)
	var end time.Time
	if opts.WindowEnd > 0 {
		end = midnight.Add(opts.WindowEnd)
	} else {
		end = midnight.Add(24*time.Hour - time.Second)
	}
	return start, end
}

// mergeClipped clips the busy intervals to [windowStart, windowEnd],
// discards the ones fully outside, and merges the rest into a minimal
// disjoint cover sorted by start time.
func mergeClipped(busy []calendar.BusyInterval, windowStart, windowEnd time.Time) []calendar.BusyInterval {
	clipped := make([]calendar.BusyInterval, 0, len(busy))
	for _, iv := range busy {
		if !iv.End.After(windowStart) || !windowEnd.After(iv.Start) {
			continue
		}
		start, end := iv.Start, iv.End
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		clipped = append(clipped, calendar.BusyInterval{Start: start, End: end})
	}

	sort.Slice(clipped, func(i, j int) bool {
		return clipped[i].Start.Before(clipped[j].Start)
	})

	var merged []calendar.BusyInterval
	for _, iv := range clipped {
		if len(merged) == 0 {
			merged = append(merged, iv)
			continue
		}
		last := &merged[len(merged)-1]
		// adjacent counts as overlapping: back-to-back meetings form one block
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
