package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ringer-dashboard/internal/view"
)

// GetGeocode returns the map links of a location.
func (h *Handler) GetGeocode(c *gin.Context) {
	location := strings.TrimSpace(c.Query("location"))
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}
	c.JSON(http.StatusOK, h.geocoder.Lookup(c.Request.Context(), location))
}

// GetMapPage renders an embedded map of a location.
func (h *Handler) GetMapPage(c *gin.Context) {
	location := strings.TrimSpace(c.Query("location"))
	if location == "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "map", view.MapPage{
		Page:  view.Page{Title: location, SignedIn: true},
		Links: h.geocoder.Lookup(c.Request.Context(), location),
	})
}
