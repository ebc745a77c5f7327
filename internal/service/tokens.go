package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

const tokenIssuer = "crm-bff"

// ActorClaims are the claims the BFF reads from bearer tokens.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService verifies HS256 bearer tokens and turns them into actors.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl applies to issued tokens.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Verify parses and validates token. Any failure is *domain.ErrUnauthenticated.
func (s *TokenService) Verify(token string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &ActorClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return domain.Actor{}, &domain.ErrUnauthenticated{Message: "invalid or expired token"}
	}

	claims, ok := parsed.Claims.(*ActorClaims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, &domain.ErrUnauthenticated{Message: "invalid token"}
	}
	if claims.Subject == "" {
		return domain.Actor{}, &domain.ErrUnauthenticated{Message: "token has no subject"}
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Actor{}, &domain.ErrUnauthenticated{Message: fmt.Sprintf("token role %q is not recognized", claims.Role)}
	}

	return domain.Actor{ID: claims.Subject, Role: role}, nil
}

// Issue signs a token for actor. Used by local tooling and tests; production
// tokens come from the identity provider sharing JWT_SECRET.
func (s *TokenService) Issue(actor domain.Actor) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
