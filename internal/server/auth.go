package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Sessions identify the acting user only. There is no authorization
// boundary in this demo: any profile can be assumed, exactly like the
// role switcher in the web UI.

type AuthConfig struct {
	// JWTSecret signs dev session tokens. With an empty secret the API
	// still works; callers fall back to the X-Actor-Id header or the
	// stored session user.
	JWTSecret string
	TokenTTL  time.Duration
}

type Principal struct {
	ActorID string
	Role    string
	Source  string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

func (c AuthConfig) ttl() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return 24 * time.Hour
}

// issueToken mints an HS256 session token for an actor.
func (c AuthConfig) issueToken(actorID, role string, now time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl())),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.JWTSecret))
}

func (c AuthConfig) parseToken(token string) (Principal, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(c.JWTSecret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return Principal{}, jwt.ErrTokenInvalidClaims
	}
	return Principal{ActorID: claims.Subject, Role: claims.Role, Source: "jwt"}, nil
}

// newIdentityMiddleware resolves the acting user from a bearer token or
// the X-Actor-Id header when either is present. Requests without
// identification still pass; handlers fall back to the stored session
// user.
func newIdentityMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authz := r.Header.Get("Authorization")
			if cfg.JWTSecret != "" && strings.HasPrefix(authz, "Bearer ") {
				if p, err := cfg.parseToken(strings.TrimPrefix(authz, "Bearer ")); err == nil {
					ctx = withPrincipal(ctx, p)
				}
			} else if actor := r.Header.Get("X-Actor-Id"); actor != "" {
				ctx = withPrincipal(ctx, Principal{ActorID: actor, Source: "header"})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
