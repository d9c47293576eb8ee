package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"homelet/internal/handler"
	"homelet/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	UserHandler        *handler.UserHandler
	PropertyHandler    *handler.PropertyHandler
	PaymentHandler     *handler.PaymentHandler
	TransactionHandler *handler.TransactionHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Provider-facing webhook. No auth, no idempotency middleware: the
		// reconciler's terminal-state check is the idempotency mechanism.
		v1.POST("/payments/webhook/paystack", deps.PaymentHandler.Webhook)

		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.GetAll)
		}

		// Listing routes (public reads).
		properties := v1.Group("/properties")
		{
			properties.GET("", deps.PropertyHandler.List)
			properties.GET("/:id", deps.PropertyHandler.Get)
			properties.GET("/:id/rooms", deps.PropertyHandler.ListRooms)
		}

		// Authenticated payment routes. Initialization is a mutating money
		// endpoint, so client retries go through the idempotency cache.
		authed := v1.Group("")
		authed.Use(middleware.RequireUser())
		authed.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
		{
			payments := authed.Group("/payments")
			{
				payments.POST("/initialize", deps.PaymentHandler.Initialize)
				payments.POST("/verify/:reference", deps.PaymentHandler.Verify)
			}

			transactions := authed.Group("/transactions")
			{
				transactions.GET("", deps.TransactionHandler.List)
				transactions.GET("/:reference", deps.TransactionHandler.Get)
			}
		}
	}

	return router
}
