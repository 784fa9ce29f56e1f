package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication for the client-facing surface
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				// Trigger and webhook endpoints authenticate with their own
				// shared secret
				return c.Path() == "/v1/signals/process" || c.Path() == "/v1/webhook/trade" || c.Path() == "/v1/webhook/events"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	// Subscription endpoints
	v1.GET("/subscriptions", h.SubscriptionGet)
	v1.POST("/subscriptions", h.Subscribe)
	v1.DELETE("/subscriptions", h.Unsubscribe)

	// Social graph
	v1.GET("/following", h.Following)
	v1.POST("/graph/refresh", h.GraphRefresh)

	// Watchlist
	v1.GET("/watchlist", h.WatchlistGet)
	v1.POST("/watchlist", h.WatchlistPost)

	// Trades feed
	v1.GET("/trades/recent", h.RecentTrades)
	v1.GET("/trades", h.TradesByAddresses)
	v1.GET("/signals/:txHash", h.SignalDetail)

	// Batch trigger: idempotent, authenticated via shared secret
	v1.POST("/signals/process", h.ProcessSignals, triggerAuth(cfg.TriggerSecret))
	v1.GET("/signals/process", h.ProcessStatus)

	// Webhook ingestion with its own secret and a rate-limited group so a
	// misbehaving sender cannot hammer the fanout path
	webhook := v1.Group("/webhook", triggerAuth(cfg.TriggerSecret))
	webhook.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(20), // 20 events per second
		Burst:     40,
		ExpiresIn: 2 * time.Minute,
	})))
	webhook.POST("/trade", h.WebhookTrade)
	webhook.POST("/events", h.WebhookEvents)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

// triggerAuth guards an endpoint with a bearer shared secret. An empty
// configured secret leaves the endpoint open, matching dev setups.
func triggerAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if subtle.ConstantTimeCompare([]byte(auth), []byte("Bearer "+secret)) != 1 {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: http.StatusUnauthorized})
			}
			return next(c)
		}
	}
}
