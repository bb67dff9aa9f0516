package timeline

import (
	"time"

	"ringer-dashboard/internal/parse"
)

// Resolve returns the instant an entry refers to. The stored RawInstant wins;
// otherwise Date (DD/MM/YYYY) and Time (HH:MM[:SS]) are read as UTC wall-clock
// fields. The boolean is false when neither representation yields an instant.
func Resolve(e DisplayEntry) (time.Time, bool) {
	if !e.RawInstant.IsZero() {
		return e.RawInstant, true
	}
	t, err := parse.DisplayInstant(e.Date, e.Time)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
