package timeline

import (
	"sort"
	"time"
)

// Display layouts understood by Resolve when the raw instant is missing.
const (
	DateLayout       = "02/01/2006"
	TimeLayout24Hour = "15:04:05"
	TimeLayout12Hour = "03:04:05 PM"
)

// Formatter converts status records into display entries for one presentation
// convention (timezone and layouts).
type Formatter struct {
	Location   *time.Location
	DateLayout string
	TimeLayout string
}

// NewFormatter returns a Formatter for the given location using the day-first
// date layout and a 24- or 12-hour clock.
func NewFormatter(loc *time.Location, hour12 bool) Formatter {
	f := Formatter{Location: loc, DateLayout: DateLayout, TimeLayout: TimeLayout24Hour}
	if hour12 {
		f.TimeLayout = TimeLayout12Hour
	}
	return f
}

// Format derives the display fields of a single record.
func (f Formatter) Format(r StatusRecord) DisplayEntry {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	dateLayout, timeLayout := f.DateLayout, f.TimeLayout
	if dateLayout == "" {
		dateLayout = DateLayout
	}
	if timeLayout == "" {
		timeLayout = TimeLayout24Hour
	}

	local := r.Instant.In(loc)
	e := DisplayEntry{
		Date:             local.Format(dateLayout),
		Time:             local.Format(timeLayout),
		RawInstant:       r.Instant,
		StatusLabel:      StatusDisconnected,
		Location:         r.Location,
		LocationIsManual: r.LocationIsManual,
	}
	if r.PluggedIn {
		e.PowerLevel = 1
		e.StatusLabel = StatusConnected
	}
	return e
}

// FormatAll formats records one-to-one, preserving order.
func (f Formatter) FormatAll(records []StatusRecord) []DisplayEntry {
	out := make([]DisplayEntry, len(records))
	for i, r := range records {
		out[i] = f.Format(r)
	}
	return out
}

// Build runs the full derivation for a fetched response: a chronologically
// sorted copy of records is formatted and annotated with durations.
func Build(records []StatusRecord, f Formatter, now *time.Time) []DurationEntry {
	sorted := make([]StatusRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Instant.Before(sorted[j].Instant)
	})
	return ComputeDurations(f.FormatAll(sorted), now)
}
