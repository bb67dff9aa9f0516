package timeline

import "time"

// Axis selects what the horizontal axis of the status chart measures.
type Axis string

const (
	AxisTime     Axis = "time"
	AxisDuration Axis = "duration"
)

// ParseAxis maps a query value to an Axis, defaulting to AxisTime.
func ParseAxis(s string) Axis {
	if Axis(s) == AxisDuration {
		return AxisDuration
	}
	return AxisTime
}

// ChartPoint is one step of the ON/OFF chart.
//
// On the time axis X is the entry's instant in unix milliseconds. On the
// duration axis X is the number of minutes elapsed since the first entry,
// accumulated from the computed durations; sentinel durations add nothing.
type ChartPoint struct {
	X       float64 `json:"x"`
	Y       int     `json:"y"`
	Label   string  `json:"label"`
	Status  string  `json:"status"`
	Minutes *int    `json:"durationMinutes,omitempty"`
	Valid   bool    `json:"valid"`
}

// ChartPoints maps duration entries to chart points, one per entry.
func ChartPoints(entries []DurationEntry, axis Axis) []ChartPoint {
	points := make([]ChartPoint, len(entries))
	elapsed := 0
	for i, e := range entries {
		p := ChartPoint{
			Y:       e.PowerLevel,
			Label:   e.Date + " " + e.Time,
			Status:  e.StatusLabel,
			Minutes: e.DurationMinutes,
		}
		switch axis {
		case AxisDuration:
			p.X = float64(elapsed)
			p.Valid = true
		default:
			if t, ok := Resolve(e.DisplayEntry); ok {
				p.X = float64(t.UnixMilli())
				p.Valid = true
			}
		}
		if e.DurationMinutes != nil {
			elapsed += *e.DurationMinutes
		}
		points[i] = p
	}
	return points
}

// Extent returns the horizontal span of the valid points. The span ends where
// the last state stops: its X plus its own duration when one is known.
func Extent(points []ChartPoint, axis Axis) (lo, hi float64, ok bool) {
	for _, p := range points {
		if !p.Valid {
			continue
		}
		if !ok {
			lo, hi, ok = p.X, p.X, true
		}
		if p.X < lo {
			lo = p.X
		}
		end := p.X
		if p.Minutes != nil {
			if axis == AxisDuration {
				end += float64(*p.Minutes)
			} else {
				end += float64(*p.Minutes) * float64(time.Minute/time.Millisecond)
			}
		}
		if end > hi {
			hi = end
		}
	}
	return lo, hi, ok
}
