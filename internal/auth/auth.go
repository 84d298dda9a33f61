// Package auth issues and validates bearer tokens for the admin API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/payverify/internal/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotEnabled   = errors.New("admin tokens not enabled")
)

// Role values carried in tokens.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Claims represents the JWT token claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the caller behind a validated token.
type Identity struct {
	Subject string
	Role    string
	TokenID string
}

// Service signs and validates HS256 tokens.
type Service struct {
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewService creates a new auth service.
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		jwtSecret: []byte(cfg.JWTSecret),
		jwtExpiry: cfg.JWTExpiry.Duration,
	}
}

// Enabled reports whether a signing secret is configured.
func (s *Service) Enabled() bool {
	return len(s.jwtSecret) > 0
}

// IssueToken creates a token for subject with the given role. A zero ttl uses
// the configured expiry.
func (s *Service) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrNotEnabled
	}
	if role != RoleAdmin && role != RoleViewer {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = s.jwtExpiry
	}

	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a bearer token and returns the caller's identity.
func (s *Service) ValidateToken(tokenStr string) (*Identity, error) {
	if !s.Enabled() {
		return nil, ErrNotEnabled
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}

	return &Identity{
		Subject: claims.Subject,
		Role:    claims.Role,
		TokenID: claims.ID,
	}, nil
}
