package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/coravoice/call-gateway/internal/api/handlers"
	"github.com/coravoice/call-gateway/pkg/env"
	"github.com/coravoice/call-gateway/pkg/middleware"
	"github.com/coravoice/call-gateway/pkg/otel"
	"github.com/coravoice/call-gateway/pkg/token"
)

// NewRouter builds the gateway's HTTP surface. redisClient may be nil, in
// which case rate limiting is disabled; tests run the full router with
// in-memory repositories only.
func NewRouter(cfg *env.Config, handler *handlers.Handler, tokens *token.Service, redisClient *redis.Client) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20)) // 1 MB limit

	if cfg.OTELEnabled {
		router.Use(otel.GinMiddleware())
	}

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	// CORS
	corsConfig := cors.DefaultConfig()
	if cfg.CORSAllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.CORSAllowedOrigins}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.CallRateLimitRPM)

	// Health and metrics
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", handler.GetMetrics)
	router.GET("/metrics/prometheus", handler.GetPrometheusMetrics)

	api := router.Group("/api")
	{
		calls := api.Group("/calls")
		{
			// Registration is the credential bootstrap, so it carries no
			// bearer token itself.
			calls.POST("", handler.CreateCall)
			calls.GET("", handler.ListCalls)
			calls.GET("/:call_id", handler.GetCallDetail)

			calls.POST("/:call_id/events",
				middleware.CallAuth(tokens, token.ScopeEvents),
				rateLimiter.Middleware(),
				handler.AppendEvent)
			calls.POST("/:call_id/complete",
				middleware.CallAuth(tokens, token.ScopeEvents),
				handler.CompleteCall)
		}

		api.POST("/tools/execute",
			middleware.CallAuth(tokens, token.ScopeTools),
			rateLimiter.Middleware(),
			handler.ExecuteTool)
	}

	// Webhook endpoint (public, signature verified)
	router.POST("/webhooks/voice", handler.VoiceStatusWebhook)

	return router
}
