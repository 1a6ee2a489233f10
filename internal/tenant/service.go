package tenant

import (
	"context"

	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/pkg/env"
	"github.com/coravoice/call-gateway/pkg/mongo"
)

// Config is the tenant profile handed to the realtime agent at call start.
type Config struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AgentDisplayName string `json:"agent_display_name"`
	BrandName        string `json:"brand_name"`
}

// AgentConfig identifies the tenant's configured agent persona.
type AgentConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service resolves tenant configuration, falling back to the configured
// defaults when the tenant has no stored profile. The single-tenant
// deployment runs entirely on the defaults.
type Service struct {
	db       *mongo.Client
	defaults Config
	agent    AgentConfig
	log      *zap.Logger
}

func NewService(db *mongo.Client, cfg *env.Config, log *zap.Logger) *Service {
	return &Service{
		db: db,
		defaults: Config{
			ID:               cfg.DefaultTenantID,
			Name:             cfg.DefaultTenantName,
			AgentDisplayName: cfg.DefaultAgentName,
			BrandName:        cfg.BrandName,
		},
		agent: AgentConfig{
			ID:   cfg.DefaultAgentID,
			Name: cfg.DefaultAgentName,
		},
		log: log,
	}
}

// Resolve returns the tenant profile for id. Unknown tenants get the
// defaults rather than an error so a misconfigured vendor number still
// produces a working call.
func (s *Service) Resolve(ctx context.Context, id string) (Config, AgentConfig) {
	if s.db == nil || id == "" || id == s.defaults.ID {
		return s.defaults, s.agent
	}

	doc, err := s.db.NewQuery("tenants").Eq("_id", id).FindOne(ctx)
	if err != nil {
		s.log.Warn("Tenant lookup failed, using defaults", zap.Error(err), zap.String("tenant_id", id))
		return s.defaults, s.agent
	}
	if doc == nil {
		return s.defaults, s.agent
	}

	cfg := s.defaults
	cfg.ID = id
	if name, ok := doc["name"].(string); ok && name != "" {
		cfg.Name = name
	}
	if brand, ok := doc["brand_name"].(string); ok && brand != "" {
		cfg.BrandName = brand
	}

	agent := s.agent
	if agentID, ok := doc["agent_id"].(string); ok && agentID != "" {
		agent.ID = agentID
	}
	if agentName, ok := doc["agent_name"].(string); ok && agentName != "" {
		agent.Name = agentName
		cfg.AgentDisplayName = agentName
	}
	return cfg, agent
}
