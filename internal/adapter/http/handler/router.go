package handler

import (
	"campaign-escrow/internal/adapter/http/middleware"
	redisStore "campaign-escrow/internal/adapter/storage/redis"
	"campaign-escrow/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Processor      ports.WebhookProcessor
	Verifier       ports.SignatureVerifier
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimit      middleware.RateLimitRule   // Limit 0 = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	MaxBodyBytes   int64
	TrustedProxies []string // nil = use the peer address as client IP
	Mode           string // gin mode; empty means release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Logger.Error().Err(err).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rl := func(c *gin.Context) { c.Next() }
	if deps.RateLimitStore != nil && deps.RateLimit.Limit > 0 {
		rl = middleware.RateLimiter(deps.RateLimitStore, "webhooks", deps.RateLimit, deps.Logger)
	}

	webhookHandler := NewWebhookHandler(deps.Processor, deps.Logger)

	v1 := r.Group("/api/v1")
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/razorpay",
			rl,
			middleware.GatewaySignature(deps.Verifier, deps.Logger),
			webhookHandler.Razorpay,
		)
	}

	return r
}
