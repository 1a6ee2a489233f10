package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ScopeEvents = "events"
	ScopeTools  = "tools"

	// MaxTTL bounds the lifetime of a call token. A leaked token dies with
	// the call, not with the deployment.
	MaxTTL = 15 * time.Minute
)

var (
	ErrUnauthenticated   = errors.New("token missing, malformed, or signature invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrInsufficientScope = errors.New("token lacks required scope")
)

// Claims is the payload of a call-scoped token. Subject carries the call id.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Scope    []string `json:"scope"`
	jwt.RegisteredClaims
}

// Identity is what Verify hands back: the (call, tenant) binding the caller
// must cross-check against the request's own declared ids.
type Identity struct {
	CallID   string
	TenantID string
	Scope    []string
	TokenID  string
}

// HasScope reports whether the identity was granted the given scope.
func (id Identity) HasScope(scope string) bool {
	for _, s := range id.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// Service mints and verifies call-scoped HS256 tokens.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	logger   *zap.Logger
}

func NewService(secret, issuer, audience string, logger *zap.Logger) *Service {
	return &Service{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		logger:   logger,
	}
}

// Mint creates a fresh token bound to one call and one tenant. The ttl is
// clamped to MaxTTL; requestID seeds the token id for log correlation.
func (s *Service) Mint(callID, tenantID string, scope []string, ttl time.Duration, requestID string) (string, time.Time, error) {
	if callID == "" {
		return "", time.Time{}, fmt.Errorf("mint: call id is required")
	}
	if tenantID == "" {
		return "", time.Time{}, fmt.Errorf("mint: tenant id is required")
	}
	if ttl <= 0 || ttl > MaxTTL {
		ttl = MaxTTL
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TenantID: tenantID,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   callID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        fmt.Sprintf("%s_%d", requestID, now.Unix()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("Minted call token",
		zap.String("call_id", callID),
		zap.String("tenant_id", tenantID),
		zap.Strings("scope", scope),
		zap.Time("expires_at", expiresAt),
	)

	return signed, expiresAt, nil
}

// Verify authenticates a token and returns the bound identity. It knows
// nothing about request shape; callers compare Identity against the
// request's declared call and tenant ids themselves.
func (s *Service) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrUnauthenticated
	}
	if !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	id := &Identity{
		CallID:   claims.Subject,
		TenantID: claims.TenantID,
		Scope:    claims.Scope,
		TokenID:  claims.ID,
	}
	if !id.HasScope(ScopeEvents) && !id.HasScope(ScopeTools) {
		return nil, ErrInsufficientScope
	}
	return id, nil
}
