package api

import (
	"context"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/geo"
	"ringer-dashboard/internal/store"
	"ringer-dashboard/internal/upstream"
)

// Authenticator verifies credentials against the status API.
type Authenticator interface {
	Login(ctx context.Context, identifier, passcode string) (upstream.User, error)
}

// Geocoder resolves a location to map links.
type Geocoder interface {
	Lookup(ctx context.Context, location string) geo.MapLinks
}

// Deps are the collaborators of Handler.
type Deps struct {
	Store    store.Store
	Service  *dashboard.Service
	Auth     Authenticator
	Geocoder Geocoder
	WebPush  *webpush.Options
	Config   *config.Config
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	service  *dashboard.Service
	auth     Authenticator
	geocoder Geocoder
	webpush  *webpush.Options
	server   config.ServerConfig
	display  config.DisplayConfig
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}
	return &Handler{
		store:    d.Store,
		service:  d.Service,
		auth:     d.Auth,
		geocoder: d.Geocoder,
		webpush:  d.WebPush,
		server:   cfg.Server,
		display:  cfg.Display,
		now:      time.Now,
	}
}

// Healthz reports whether the database is reachable.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
