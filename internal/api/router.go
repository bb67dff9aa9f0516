package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/metrics"
	"ringer-dashboard/internal/mw"
	"ringer-dashboard/internal/view"
)

// NewRouter creates and configures a new Gin router. gatherer serves the
// metrics endpoint and may be nil when metrics are disabled.
func NewRouter(cfg *config.Config, h *Handler, rec metrics.Recorder, gatherer prometheus.Gatherer) *gin.Engine {
	if rec == nil {
		rec = metrics.Noop()
	}

	r := gin.Default()
	r.SetHTMLTemplate(view.Templates())
	r.Use(metrics.Middleware(rec))

	// One limiter shared by pages and API so clients cannot double their budget.
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RateLimitIdle)

	cacheTTL := cfg.Server.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL, rec)

	requireAPI := mw.RequireSession(h.store, mw.AuthOptions{Cookie: cfg.Server.SessionCookie})
	requirePage := mw.RequireSession(h.store, mw.AuthOptions{Cookie: cfg.Server.SessionCookie, LoginPath: "/login"})

	r.GET("/healthz", h.Healthz)
	if cfg.Metrics.Enabled && gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	pages := r.Group("/")
	pages.Use(rateLimiter)
	{
		pages.GET("/login", h.GetLoginPage)
		pages.POST("/login", h.PostLoginPage)
		pages.POST("/logout", h.PostLogoutPage)
		pages.GET("/", requirePage, h.GetDashboardPage)
		pages.GET("/map", requirePage, h.GetMapPage)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", h.PostLogin)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		authed := api.Group("", requireAPI)
		authed.POST("/logout", h.PostLogout)
		// Status views are recomputed against the current time on every request.
		authed.GET("/status", h.GetStatus)
		authed.GET("/status/chart", h.GetStatusChart)
		authed.GET("/geocode", caching, h.GetGeocode)
		authed.GET("/subscriptions", h.GetSubscription)
		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
