package timeline

import (
	"fmt"
	"log"
	"time"
)

type resolver func(DisplayEntry) (time.Time, bool)

// ComputeDurations annotates every entry with the time elapsed until the next
// entry. The last entry is measured against now when it is given and gets the
// "N/A" label otherwise. Entries must already be in chronological order; the
// input slice is not modified and the result has the same length and order.
func ComputeDurations(entries []DisplayEntry, now *time.Time) []DurationEntry {
	return computeDurations(entries, now, Resolve)
}

func computeDurations(entries []DisplayEntry, now *time.Time, resolve resolver) []DurationEntry {
	out := make([]DurationEntry, len(entries))
	for i := range entries {
		out[i] = computeOne(entries, i, now, resolve)
	}
	return out
}

// computeOne isolates a single entry so that a fault only costs that row.
func computeOne(entries []DisplayEntry, i int, now *time.Time, resolve resolver) (out DurationEntry) {
	out = DurationEntry{DisplayEntry: entries[i]}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error calculating duration for entry %d: %v", i, r)
			out.DurationLabel = LabelError
			out.DurationMinutes = nil
		}
	}()

	var end time.Time
	endOK := true
	if i < len(entries)-1 {
		end, endOK = resolve(entries[i+1])
	} else {
		if now == nil {
			out.DurationLabel = LabelNotApplicable
			return out
		}
		end = *now
	}

	start, startOK := resolve(entries[i])
	if !startOK || !endOK {
		out.DurationLabel = LabelInvalidDate
		return out
	}

	label, minutes := FormatGap(end.Sub(start))
	out.DurationLabel = label
	out.DurationMinutes = &minutes
	return out
}

// FormatGap renders a gap as "{h}h {m}m" or "{m}m" and returns the whole minutes
// it covers. Negative gaps are clamped to zero.
func FormatGap(gap time.Duration) (string, int) {
	if gap < 0 {
		gap = 0
	}
	hours := int(gap / time.Hour)
	minutes := int((gap % time.Hour) / time.Minute)

	label := fmt.Sprintf("%dm", minutes)
	if hours > 0 {
		label = fmt.Sprintf("%dh %s", hours, label)
	}
	return label, hours*60 + minutes
}
