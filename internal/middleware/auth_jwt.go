package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"charity/internal/domain"
)

// Claims are the access token claims. The subject is the actor id.
type Claims struct {
	Role   string `json:"role"`
	Locale string `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

type actorContextKey struct{}

var errMissingToken = errors.New("missing authorization")

// SignToken issues an HS256 access token for actor.
func SignToken(secret string, actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry of an access token.
func ParseToken(secret, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization")
	}
	return strings.TrimSpace(parts[1]), nil
}

func authenticate(secret string, r *http.Request) (*http.Request, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return r, err
	}
	claims, err := ParseToken(secret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return r, errors.New("token has expired")
		}
		return r, errors.New("invalid token")
	}
	role := domain.Role(claims.Role)
	if role == "" {
		role = domain.RoleUser
	}
	ctx := ContextWithActor(r.Context(), domain.Actor{ID: claims.Subject, Role: role})
	if claims.Locale != "" {
		ctx = context.WithValue(ctx, LocaleKey, normalizeLocale(claims.Locale))
	}
	return r.WithContext(ctx), nil
}

// AuthJWT rejects requests without a valid bearer token.
func AuthJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, err := authenticate(secret, r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth attaches the actor when a token is sent. A malformed or expired
// token is still rejected so clients notice stale credentials.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, err := authenticate(secret, r)
			if err != nil && !errors.Is(err, errMissingToken) {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after AuthJWT.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
				return
			}
			if actor.Role != role {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFromContext returns the authenticated actor, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *domain.Actor {
	if v, ok := ctx.Value(actorContextKey{}).(domain.Actor); ok {
		return &v
	}
	return nil
}

func ContextWithActor(ctx context.Context, actor domain.Actor) context.Context {
	if strings.TrimSpace(actor.ID) == "" {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}
