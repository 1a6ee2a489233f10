package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService("test-secret", "test-issuer", "test-audience", zap.NewNop())
}

func TestService_MintAndVerify_RoundTrip(t *testing.T) {
	s := newTestService()

	signed, expiresAt, err := s.Mint("call-1", "tenant-a", []string{ScopeEvents, ScopeTools}, 5*time.Minute, "req-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if signed == "" {
		t.Fatal("Mint() returned empty token")
	}
	if remaining := time.Until(expiresAt); remaining > 5*time.Minute || remaining < 4*time.Minute {
		t.Errorf("Mint() expiry = %v from now, want ~5m", remaining)
	}

	id, err := s.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.CallID != "call-1" {
		t.Errorf("Verify() call id = %q, want %q", id.CallID, "call-1")
	}
	if id.TenantID != "tenant-a" {
		t.Errorf("Verify() tenant id = %q, want %q", id.TenantID, "tenant-a")
	}
	if !id.HasScope(ScopeEvents) || !id.HasScope(ScopeTools) {
		t.Errorf("Verify() scope = %v, want events+tools", id.Scope)
	}
	if id.TokenID == "" {
		t.Error("Verify() token id is empty")
	}
}

func TestService_Mint_ClampsTTL(t *testing.T) {
	s := newTestService()

	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"over maximum", 2 * time.Hour},
		{"zero", 0},
		{"negative", -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, expiresAt, err := s.Mint("call-1", "tenant-a", []string{ScopeEvents}, tt.ttl, "req-1")
			if err != nil {
				t.Fatalf("Mint() error = %v", err)
			}
			if time.Until(expiresAt) > MaxTTL {
				t.Errorf("Mint() expiry %v exceeds MaxTTL %v", time.Until(expiresAt), MaxTTL)
			}
		})
	}
}

func TestService_Mint_RequiresIdentity(t *testing.T) {
	s := newTestService()

	if _, _, err := s.Mint("", "tenant-a", []string{ScopeEvents}, time.Minute, "req-1"); err == nil {
		t.Error("Mint() with empty call id: expected error, got nil")
	}
	if _, _, err := s.Mint("call-1", "", []string{ScopeEvents}, time.Minute, "req-1"); err == nil {
		t.Error("Mint() with empty tenant id: expected error, got nil")
	}
}

func TestService_Verify_Expired(t *testing.T) {
	s := newTestService()

	expired := signRaw(t, "test-secret", Claims{
		TenantID: "tenant-a",
		Scope:    []string{ScopeEvents},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "call-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-20 * time.Minute)),
		},
	})
	if _, err := s.Verify(expired); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify(expired) error = %v, want ErrTokenExpired", err)
	}
}

// signRaw signs claims directly, bypassing Mint's ttl clamp.
func signRaw(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestService_Verify_Malformed(t *testing.T) {
	s := newTestService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong signature", signRaw(t, "other-secret", Claims{
			TenantID: "tenant-a",
			Scope:    []string{ScopeEvents},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "call-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(tt.token); !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestService_Verify_NoUsableScope(t *testing.T) {
	s := newTestService()

	signed, _, err := s.Mint("call-1", "tenant-a", []string{"something-else"}, time.Minute, "req-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if _, err := s.Verify(signed); !errors.Is(err, ErrInsufficientScope) {
		t.Errorf("Verify() error = %v, want ErrInsufficientScope", err)
	}
}

func TestService_Verify_FreshTokensPerMint(t *testing.T) {
	s := newTestService()

	a, _, err := s.Mint("call-1", "tenant-a", []string{ScopeEvents}, time.Minute, "req-a")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	b, _, err := s.Mint("call-1", "tenant-a", []string{ScopeEvents}, time.Minute, "req-b")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if a == b {
		t.Error("two mints for the same call produced identical tokens")
	}
}
