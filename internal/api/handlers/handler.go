package handlers

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/internal/registry"
	"github.com/coravoice/call-gateway/internal/tenant"
	"github.com/coravoice/call-gateway/internal/timeline"
	"github.com/coravoice/call-gateway/internal/tools"
	"github.com/coravoice/call-gateway/pkg/env"
	"github.com/coravoice/call-gateway/pkg/logger"
	"github.com/coravoice/call-gateway/pkg/mongo"
	"github.com/coravoice/call-gateway/pkg/token"
)

type Handler struct {
	cfg         *env.Config
	logger      *zap.Logger
	tokens      *token.Service
	registry    *registry.Service
	timeline    *timeline.Service
	dispatcher  *tools.Dispatcher
	tenants     *tenant.Service
	redisClient *redis.Client
	mongoClient *mongo.Client
}

func NewHandler(
	cfg *env.Config,
	tokens *token.Service,
	registrySvc *registry.Service,
	timelineSvc *timeline.Service,
	dispatcher *tools.Dispatcher,
	tenants *tenant.Service,
	redisClient *redis.Client,
	mongoClient *mongo.Client,
) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger.Log,
		tokens:      tokens,
		registry:    registrySvc,
		timeline:    timelineSvc,
		dispatcher:  dispatcher,
		tenants:     tenants,
		redisClient: redisClient,
		mongoClient: mongoClient,
	}
}
