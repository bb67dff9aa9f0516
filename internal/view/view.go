// Package view renders the dashboard's HTML pages and the SVG status chart.
package view

import (
	"fmt"
	"html/template"
	"net/url"
	"time"

	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/geo"
	"ringer-dashboard/internal/timeline"
)

// Page holds the fields every page's header needs.
type Page struct {
	Title string
	// RefreshSeconds > 0 emits a meta refresh.
	RefreshSeconds int
	SignedIn       bool
}

// LoginPage is the data of the "login" template.
type LoginPage struct {
	Page
	Identifier string
	Error      string
}

// DashboardPage is the data of the "dashboard" template.
type DashboardPage struct {
	Page
	View       dashboard.View
	Mode       string // "table" or "graph"
	Axis       timeline.Axis
	StartValue string
	EndValue   string
	Chart      Chart
	Error      string
}

// MapPage is the data of the "map" template.
type MapPage struct {
	Page
	Links geo.MapLinks
}

// Modes accepted by the dashboard page.
const (
	ModeTable = "table"
	ModeGraph = "graph"
)

// ParseMode maps a query value to a dashboard mode, defaulting to the table.
func ParseMode(s string) string {
	if s == ModeGraph {
		return ModeGraph
	}
	return ModeTable
}

var funcMap = template.FuncMap{
	"statusClass": func(e timeline.DurationEntry) string {
		if e.Connected() {
			return "ok"
		}
		return "dim"
	},
	"durationClass": func(e timeline.DurationEntry) string {
		if e.HasDuration() {
			return ""
		}
		return "warn"
	},
	"fmtMinutes": func(m int) string {
		label, _ := timeline.FormatGap(time.Duration(m) * time.Minute)
		return label
	},
	"fmtRangeTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
	"mapLink": func(location string) string {
		return "/map?location=" + url.QueryEscape(location)
	},
	// query rebuilds the dashboard URL with one parameter replaced.
	"query": func(p DashboardPage, key, value string) string {
		q := url.Values{}
		q.Set("view", p.Mode)
		q.Set("axis", string(p.Axis))
		if p.StartValue != "" {
			q.Set("start", p.StartValue)
		}
		if p.EndValue != "" {
			q.Set("end", p.EndValue)
		}
		if p.RefreshSeconds > 0 {
			q.Set("refresh", fmt.Sprint(p.RefreshSeconds))
		}
		q.Set(key, value)
		return "/?" + q.Encode()
	},
}

// Templates parses every page template. The set is suitable for gin's
// SetHTMLTemplate; page names are "login", "dashboard" and "map".
func Templates() *template.Template {
	return template.Must(template.New("pages").Funcs(funcMap).Parse(
		tmplLayout + tmplLogin + tmplDashboard + tmplMap,
	))
}
