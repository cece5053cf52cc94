package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"parking-companion/config"
	"parking-companion/internal/mapview"
	"parking-companion/internal/modal"
	"parking-companion/internal/mw"
	"parking-companion/internal/page"
)

// Deps are the components served by the router.
type Deps struct {
	Server   config.ServerConfig
	DB       *gorm.DB
	Webpush  *webpush.Options
	Map      *mapview.Controller
	Dialog   *modal.Controller
	Page     *page.Page
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(d.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = d.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	handler := NewHandler(d.DB, d.Webpush, d.Map, d.Dialog, d.Page)

	limit := rate.Limit(d.Server.RateLimitPerSec)
	if d.Server.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	rateLimiter := mw.RateLimiter(limit, d.Server.RateLimitBurst)

	// A zero TTL disables response caching.
	ttl := time.Duration(d.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if ttl > 0 {
		caching = mw.Cache(cacheStore, ttl)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	ui := r.Group("/ui")
	ui.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		ui.GET("/map", caching, handler.GetMap)
		ui.POST("/map/refresh", handler.RefreshMap)
		ui.PUT("/map/only_public", handler.PutOnlyPublic)
		ui.PUT("/map/radius", handler.PutRadius)
		ui.POST("/map/markers/:id/navigate", handler.Navigate)

		ui.GET("/modal", handler.GetDialog)
		ui.POST("/modal/open", handler.OpenDialog)
		ui.POST("/modal/close", handler.CloseDialog)
		ui.POST("/modal/actions/:action", handler.TriggerAction)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
