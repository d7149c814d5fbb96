package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/cinema-platform/internal/platform/api"
	"github.com/example/cinema-platform/internal/platform/httpserver"
)

type ctxKeyUserID struct{}
type ctxKeyRole struct{}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyUserID{}).(string)
	return v, ok
}

// WithUserID injects user_id into context. Useful for testing.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

// WithRole injects role into context. Useful for testing.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole{}, role)
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRole{}).(string)
	return v, ok
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTVerifier validates HS256 access tokens issued by the users service.
// Issuer is checked only when set.
type JWTVerifier struct {
	Secret []byte
	Issuer string
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireUser middleware validates Bearer token and injects user_id into context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := httpserver.RequestIDFromContext(r.Context())
			tok, ok := bearerToken(r)
			if !ok {
				api.Unauthorized(w, "AUTH_MISSING", "Missing bearer token", rid)
				return
			}
			claims, err := verifier.Parse(tok)
			if err != nil || strings.TrimSpace(claims.Subject) == "" {
				api.Unauthorized(w, "AUTH_INVALID", "Invalid or expired token", rid)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUserID{}, claims.Subject)
			if strings.TrimSpace(claims.Role) != "" {
				ctx = context.WithValue(ctx, ctxKeyRole{}, claims.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
