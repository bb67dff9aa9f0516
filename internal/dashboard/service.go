// Package dashboard assembles the status history view of one user: it fetches
// records for a date range and derives the duration table from them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ringer-dashboard/internal/timeline"
)

// ErrInvalidRange is returned when a requested range cannot be used.
var ErrInvalidRange = errors.New("invalid date range")

// StatusFetcher loads status records for a user and time range.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, userID string, start, end time.Time) ([]timeline.StatusRecord, error)
}

// Range is a half-open [Start, End) window of status history. A live range
// has no fixed end: End is the instant it was resolved at and keeps following now.
type Range struct {
	Start time.Time
	End   time.Time
	Live  bool
}

// Summary aggregates the numeric durations of a view.
type Summary struct {
	Events              int
	Connections         int
	ConnectedMinutes    int
	DisconnectedMinutes int
}

// View is everything a renderer needs for one dashboard frame.
type View struct {
	UserID  string
	Range   Range
	Now     time.Time
	Entries []timeline.DurationEntry
	Summary Summary
}

// Latest returns the most recent entry, if any.
func (v View) Latest() (timeline.DurationEntry, bool) {
	if len(v.Entries) == 0 {
		return timeline.DurationEntry{}, false
	}
	return v.Entries[len(v.Entries)-1], true
}

// Service loads dashboard views.
type Service struct {
	fetcher   StatusFetcher
	formatter timeline.Formatter
	lookback  time.Duration
}

// NewService creates a Service. lookback is the default range length.
func NewService(fetcher StatusFetcher, formatter timeline.Formatter, lookback time.Duration) *Service {
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return &Service{fetcher: fetcher, formatter: formatter, lookback: lookback}
}

// Formatter returns the presentation settings used for entries.
func (s *Service) Formatter() timeline.Formatter {
	return s.formatter
}

// Load fetches the records of userID in rng and composes the view at now.
func (s *Service) Load(ctx context.Context, userID string, rng Range, now time.Time) (View, error) {
	records, err := s.fetcher.FetchStatus(ctx, userID, rng.Start, rng.End)
	if err != nil {
		return View{}, fmt.Errorf("failed to fetch status for user %s: %w", userID, err)
	}
	return s.Compose(userID, records, rng, now), nil
}

// Compose derives a view from already fetched records. The last entry is
// measured against now, or against the range end when a fixed range lies in the past.
func (s *Service) Compose(userID string, records []timeline.StatusRecord, rng Range, now time.Time) View {
	ref := now
	if !rng.Live && !rng.End.IsZero() && rng.End.Before(now) {
		ref = rng.End
	}
	entries := timeline.Build(records, s.formatter, &ref)
	return View{
		UserID:  userID,
		Range:   rng,
		Now:     now,
		Entries: entries,
		Summary: Summarize(entries),
	}
}

// Summarize totals connected and disconnected minutes over entries that have a
// numeric duration.
func Summarize(entries []timeline.DurationEntry) Summary {
	sum := Summary{Events: len(entries)}
	for _, e := range entries {
		if e.Connected() {
			sum.Connections++
		}
		if e.DurationMinutes == nil {
			continue
		}
		if e.Connected() {
			sum.ConnectedMinutes += *e.DurationMinutes
		} else {
			sum.DisconnectedMinutes += *e.DurationMinutes
		}
	}
	return sum
}

var rangeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseRange reads optional start/end values. Accepted forms are RFC3339,
// "2006-01-02T15:04" and "2006-01-02" (read in the display timezone); a bare
// end date covers that whole day. Missing values default to the last lookback
// period ending at now.
func (s *Service) ParseRange(startRaw, endRaw string, now time.Time) (Range, error) {
	loc := s.formatter.Location
	if loc == nil {
		loc = time.UTC
	}

	rng := Range{End: now, Live: true}
	if v := strings.TrimSpace(endRaw); v != "" {
		t, layout, err := parseRangeValue(v, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end %q", ErrInvalidRange, endRaw)
		}
		if layout == "2006-01-02" {
			t = t.AddDate(0, 0, 1)
		}
		rng.End = t
		rng.Live = false
	}

	rng.Start = rng.End.Add(-s.lookback)
	if v := strings.TrimSpace(startRaw); v != "" {
		t, _, err := parseRangeValue(v, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: start %q", ErrInvalidRange, startRaw)
		}
		rng.Start = t
	}

	if !rng.Start.Before(rng.End) {
		return Range{}, fmt.Errorf("%w: start must be before end", ErrInvalidRange)
	}
	return rng, nil
}

func parseRangeValue(v string, loc *time.Location) (time.Time, string, error) {
	var lastErr error
	for _, layout := range rangeLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, layout, nil
		}
		lastErr = err
	}
	return time.Time{}, "", lastErr
}
