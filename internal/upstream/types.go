package upstream

import (
	"time"

	"ringer-dashboard/internal/timeline"
)

// User is the profile returned by a successful login.
type User struct {
	ID             string `json:"id"`
	EmailOrPhone   string `json:"emailOrPhone"`
	Location       string `json:"location"`
	ManualLocation bool   `json:"manualLocation"`
}

type loginRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Passcode     string `json:"passcode"`
}

type loginResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type statusRequest struct {
	UserID    string `json:"userId"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
}

// statusItem models one element of the get-status response. statusTime is unix milliseconds.
type statusItem struct {
	StatusTime     int64  `json:"statusTime"`
	IsPluggedIn    bool   `json:"isPluggedIn"`
	Location       string `json:"location"`
	ManualLocation bool   `json:"manualLocation"`
}

func (it statusItem) record() timeline.StatusRecord {
	return timeline.StatusRecord{
		Instant:          time.UnixMilli(it.StatusTime).UTC(),
		PluggedIn:        it.IsPluggedIn,
		Location:         it.Location,
		LocationIsManual: it.ManualLocation,
	}
}
