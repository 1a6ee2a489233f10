package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/internal/api"
	"github.com/coravoice/call-gateway/internal/api/handlers"
	"github.com/coravoice/call-gateway/internal/registry"
	"github.com/coravoice/call-gateway/internal/tenant"
	"github.com/coravoice/call-gateway/internal/timeline"
	"github.com/coravoice/call-gateway/internal/tools"
	"github.com/coravoice/call-gateway/pkg/env"
	"github.com/coravoice/call-gateway/pkg/logger"
	"github.com/coravoice/call-gateway/pkg/mongo"
	"github.com/coravoice/call-gateway/pkg/notify"
	"github.com/coravoice/call-gateway/pkg/otel"
	"github.com/coravoice/call-gateway/pkg/token"
)

func main() {
	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		shutdown, err := otel.InitTracing("call-gateway", "1.0.0", cfg.OTELEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer shutdown()
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	logger.Log.Info("Starting Call Session Gateway",
		zap.String("env", cfg.AppEnv),
		zap.String("port", cfg.AppPort),
	)

	// Initialize Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Initialize MongoDB
	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Log.Warn("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()

	if err := mongoClient.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("Failed to ensure indexes", zap.Error(err))
	}

	// Core services
	tokens := token.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, logger.Log)
	registrySvc := registry.NewService(registry.NewMongoRepository(mongoClient), logger.Log)
	timelineSvc := timeline.NewService(timeline.NewMongoRepository(mongoClient), logger.Log)
	tenantSvc := tenant.NewService(mongoClient, cfg, logger.Log)

	var sms notify.SMSSender = notify.Noop{}
	if cfg.SMSServiceURL != "" {
		sms = notify.NewSMSClient(cfg.SMSServiceURL, time.Duration(cfg.SMSTimeoutMs)*time.Millisecond, logger.Log)
		logger.Log.Info("SMS relay configured", zap.String("url", cfg.SMSServiceURL))
	}

	// Tool dispatcher
	stores := tools.NewMongoStores(mongoClient)
	dispatcher := tools.NewDispatcher(
		tools.NewRedisIdempotencyStore(redisClient),
		timelineSvc,
		time.Duration(cfg.ToolTimeoutMs)*time.Millisecond,
		logger.Log,
	)
	tools.RegisterDefaults(dispatcher, tools.Stores{
		Listings:  stores.Listings,
		Bookings:  stores.Bookings,
		Leads:     stores.Leads,
		Callbacks: stores.Callbacks,
	}, sms, logger.Log)

	handler := handlers.NewHandler(cfg, tokens, registrySvc, timelineSvc, dispatcher, tenantSvc, redisClient, mongoClient)
	router := api.NewRouter(cfg, handler, tokens, redisClient)

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("Call Session Gateway listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
