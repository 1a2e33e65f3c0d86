package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"openair-backend/config"
	"openair-backend/internal/metrics"
	"openair-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, d Deps, logger *zap.Logger, collector *metrics.Collector) *gin.Engine {
	r := gin.New()
	r.Use(mw.Observe(logger, collector), mw.Recovery(logger))

	handler := NewHandler(d, logger)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Session(cfg.SecureCookies))
	{
		api.GET("/session", handler.GetSession)
		api.POST("/session/demo", handler.EnterDemo)
		api.DELETE("/session/demo", handler.ExitDemo)
		api.PUT("/session/wallet", handler.ConnectWallet)
		api.DELETE("/session/wallet", handler.DisconnectWallet)

		api.GET("/balance", handler.GetBalance)
		api.GET("/classify", caching, handler.Classify)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		// The gate runs before the cache so a cached body never reaches a gated client.
		gated := api.Group("", handler.RequireView)
		gated.GET("/readings/current", handler.GetCurrentReading)
		gated.GET("/transactions", handler.GetTransactions)
		gated.POST("/transactions", handler.PostTransaction)
		gated.GET("/sensors", caching, handler.GetSensors)
	}

	return r
}
