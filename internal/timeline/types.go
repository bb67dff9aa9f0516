// Package timeline turns a device's plug-in/plug-out history into display rows
// annotated with how long each state lasted.
package timeline

import "time"

// Status labels shown for a record.
const (
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
)

// Sentinel duration labels used when no numeric duration can be computed.
const (
	LabelNotApplicable = "N/A"
	LabelInvalidDate   = "Invalid date"
	LabelError         = "Error"
)

// StatusRecord is one observed plug-in/plug-out event as received from the status API.
type StatusRecord struct {
	Instant          time.Time
	PluggedIn        bool
	Location         string
	LocationIsManual bool
}

// DisplayEntry is a StatusRecord prepared for presentation. RawInstant is kept
// next to the formatted strings; a zero RawInstant means only the strings are known.
type DisplayEntry struct {
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	RawInstant       time.Time `json:"rawInstant"`
	PowerLevel       int       `json:"power"`
	StatusLabel      string    `json:"status"`
	Location         string    `json:"location,omitempty"`
	LocationIsManual bool      `json:"manualLocation"`
}

// DurationEntry is a DisplayEntry annotated with the time until the next entry
// (or until "now" for the last one). DurationMinutes is nil for sentinel labels.
type DurationEntry struct {
	DisplayEntry
	DurationLabel   string `json:"duration"`
	DurationMinutes *int   `json:"durationMinutes,omitempty"`
}

// Connected reports whether the entry records a plugged-in state.
func (e DisplayEntry) Connected() bool {
	return e.PowerLevel == 1
}

// HasDuration reports whether a numeric duration was computed for the entry.
func (e DurationEntry) HasDuration() bool {
	return e.DurationMinutes != nil
}
