package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/httputil"
	"verity/pkg/requestcontext"
)

// Claims are the access-token claims issued by the marketplace auth service.
// Subject carries the user ID; Role is "user" or "admin".
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator validates HS256 access tokens.
type TokenValidator struct {
	signingKey []byte
	issuer     string
}

// NewTokenValidator returns a validator for tokens signed with signingKey.
func NewTokenValidator(signingKey, issuer string) *TokenValidator {
	return &TokenValidator{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for subject. Used by tests.
func (v *TokenValidator) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(v.signingKey)
}

// ValidateToken parses and verifies a bearer token.
func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// RequireAuth validates the bearer token and stores the user and actor in
// the request context.
func RequireAuth(validator *TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			const bearerPrefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				logger.WarnContext(ctx, "token validation failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			role := claims.Role
			if role == "" {
				role = requestcontext.RoleUser
			}
			ctx = requestcontext.WithActor(ctx, requestcontext.Actor{Subject: claims.Subject, Role: role})
			if userID, err := id.ParseUserID(claims.Subject); err == nil {
				ctx = requestcontext.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose actor is not an admin. It must run
// after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.ActorFrom(ctx)
			if !actor.IsAdmin() {
				logger.WarnContext(ctx, "admin role required",
					"request_id", requestcontext.RequestID(ctx),
					"subject", actor.Subject,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
