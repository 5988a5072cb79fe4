package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-recruiter-hub/config"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Define typed context keys
type contextKey string

const UserIDKey contextKey = "userID"
const UserRoleKey contextKey = "userRole"

// Authenticate validates the Bearer token and stores the caller's identity
// in the request context. Requests without a valid token are rejected.
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	secretKey := []byte(jwtCfg.SecretKey)
	if len(secretKey) == 0 {
		logger.Error("FATAL: JWT Secret Key is not configured!")
		panic("JWT Secret Key cannot be empty")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			claims, errMsg := parseBearerToken(r, secretKey, jwtCfg)
			if errMsg != "" {
				l.WarnContext(ctx, "Authentication failed", slog.String("reason", errMsg))
				api.ErrorResponse(w, r, http.StatusUnauthorized, errMsg)
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate resolves the caller's identity when a token is
// present but lets anonymous requests through. Public listing endpoints use
// it so authenticated and anonymous callers share one route.
func OptionalAuthenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	secretKey := []byte(jwtCfg.SecretKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, errMsg := parseBearerToken(r, secretKey, jwtCfg)
			if errMsg != "" {
				logger.DebugContext(r.Context(), "Ignoring invalid token on public route", slog.String("reason", errMsg))
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearerToken(r *http.Request, secretKey []byte, jwtCfg config.JWTConfig) (*types.Claims, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "Authorization header required"
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
		return nil, "Authorization header format must be Bearer {token}"
	}

	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(headerParts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, "Token has expired"
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, "Malformed token"
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, "Invalid token signature"
		}
		return nil, "Invalid or expired token"
	}
	if !token.Valid {
		return nil, "Invalid token"
	}
	if claims.Issuer != jwtCfg.Issuer {
		return nil, "Invalid token issuer"
	}
	if jwtCfg.Audience != "" && !api.VerifyAudience(claims.Audience, jwtCfg.Audience) {
		return nil, "Invalid token audience"
	}
	return claims, ""
}

// Helper functions to get claims from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// PrincipalFromContext builds the acting principal. Requests that never ran
// through Authenticate resolve to an anonymous principal with the base role.
func PrincipalFromContext(ctx context.Context) types.Principal {
	idStr, ok := GetUserIDFromContext(ctx)
	if !ok {
		return types.Principal{Role: types.RoleUser}
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return types.Principal{Role: types.RoleUser}
	}
	role, _ := GetUserRoleFromContext(ctx)
	if role == "" {
		role = types.RoleUser
	}
	return types.Principal{ID: id, Role: role}
}

// RequireRole guards a route group behind a role set. Runs AFTER the
// Authenticate middleware.
func RequireRole(logger *slog.Logger, allowedRoles ...string) func(next http.Handler) http.Handler {
	roleMap := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		roleMap[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role, ok := GetUserRoleFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "Role claim missing from context")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			if _, allowed := roleMap[role]; !allowed {
				logger.WarnContext(ctx, "Role check failed",
					slog.Any("allowed_roles", allowedRoles), slog.String("actual_role", role))
				api.ErrorResponse(w, r, http.StatusForbidden,
					fmt.Sprintf("User role %s is not authorized to access this route", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
