package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/mw"
	"ringer-dashboard/internal/timeline"
	"ringer-dashboard/internal/upstream"
	"ringer-dashboard/internal/view"
)

type rangeResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Live  bool      `json:"live"`
}

type summaryResponse struct {
	Events              int `json:"events"`
	Connections         int `json:"connections"`
	ConnectedMinutes    int `json:"connectedMinutes"`
	DisconnectedMinutes int `json:"disconnectedMinutes"`
}

// statusResponse is the JSON form of a dashboard view.
type statusResponse struct {
	UserID  string                   `json:"userId"`
	Range   rangeResponse            `json:"range"`
	Now     time.Time                `json:"now"`
	Entries []timeline.DurationEntry `json:"entries"`
	Summary summaryResponse          `json:"summary"`
	Latest  *timeline.DurationEntry  `json:"latest"`
}

func newStatusResponse(v dashboard.View) statusResponse {
	resp := statusResponse{
		UserID:  v.UserID,
		Range:   rangeResponse{Start: v.Range.Start, End: v.Range.End, Live: v.Range.Live},
		Now:     v.Now,
		Entries: v.Entries,
		Summary: summaryResponse{
			Events:              v.Summary.Events,
			Connections:         v.Summary.Connections,
			ConnectedMinutes:    v.Summary.ConnectedMinutes,
			DisconnectedMinutes: v.Summary.DisconnectedMinutes,
		},
	}
	if resp.Entries == nil {
		resp.Entries = []timeline.DurationEntry{}
	}
	if latest, ok := v.Latest(); ok {
		resp.Latest = &latest
	}
	return resp
}

// loadView parses the range query and loads the caller's view. The returned
// status code describes the failure when err is non-nil.
func (h *Handler) loadView(c *gin.Context) (dashboard.View, int, error) {
	now := h.now()
	rng, err := h.service.ParseRange(c.Query("start"), c.Query("end"), now)
	if err != nil {
		return dashboard.View{}, http.StatusBadRequest, err
	}

	v, err := h.service.Load(c.Request.Context(), mw.UserID(c), rng, now)
	switch {
	case err == nil:
		return v, http.StatusOK, nil
	case upstream.IsUnauthorized(err):
		return dashboard.View{Range: rng, Now: now}, http.StatusUnauthorized, errors.New("status service rejected this account, sign in again")
	default:
		log.Printf("Error loading status for user %s: %v", mw.UserID(c), err)
		return dashboard.View{Range: rng, Now: now}, http.StatusBadGateway, errors.New("could not load status history")
	}
}

// GetStatus returns the duration-annotated status history of the caller.
func (h *Handler) GetStatus(c *gin.Context) {
	v, code, err := h.loadView(c)
	if err != nil {
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newStatusResponse(v))
}

// GetStatusChart returns the ON/OFF chart points of the caller's history.
func (h *Handler) GetStatusChart(c *gin.Context) {
	axis := timeline.ParseAxis(c.Query("axis"))
	v, code, err := h.loadView(c)
	if err != nil {
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"axis":   axis,
		"points": timeline.ChartPoints(v.Entries, axis),
	})
}

// GetDashboardPage renders the table or graph page.
func (h *Handler) GetDashboardPage(c *gin.Context) {
	page := view.DashboardPage{
		Page: view.Page{
			Title:          "Dashboard",
			RefreshSeconds: h.display.AutoRefreshSeconds,
			SignedIn:       true,
		},
		Mode:       view.ParseMode(c.Query("view")),
		Axis:       timeline.ParseAxis(c.Query("axis")),
		StartValue: c.Query("start"),
		EndValue:   c.Query("end"),
	}
	if raw, ok := c.GetQuery("refresh"); ok {
		if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
			page.RefreshSeconds = secs
		}
	}

	v, code, err := h.loadView(c)
	page.View = v
	if err != nil {
		page.Error = err.Error()
		c.HTML(code, "dashboard", page)
		return
	}

	if page.Mode == view.ModeGraph {
		page.Chart = view.BuildChart(timeline.ChartPoints(v.Entries, page.Axis), page.Axis, h.service.Formatter().Location)
	}
	c.HTML(http.StatusOK, "dashboard", page)
}
