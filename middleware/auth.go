package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bloghub/apperror"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

// ContextUserKey stores the authenticated *models.User inside Gin context.
const ContextUserKey = "user"

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*utils.IdentityClaims, error)
}

// IdentityResolver maps verified claims to a local user, provisioning it when needed.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claims *utils.IdentityClaims) (*models.User, error)
}

// AuthRequired ensures the request carries a valid identity token of an active user.
func AuthRequired(verifier TokenVerifier, users IdentityResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := bearerToken(ctx)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}

		user, err := authenticate(ctx, verifier, users, token)
		if err != nil {
			utils.Fail(ctx, err)
			return
		}

		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets anonymous requests through.
func OptionalAuth(verifier TokenVerifier, users IdentityResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			ctx.Next()
			return
		}
		token, err := bearerToken(ctx)
		if err == nil {
			if user, authErr := authenticate(ctx, verifier, users, token); authErr == nil {
				ctx.Set(ContextUserKey, user)
			}
		}
		ctx.Next()
	}
}

// RequireRole rejects users holding none of roles. Must run after AuthRequired.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil {
			utils.Fail(ctx, apperror.NewUnauthorized("Access denied. Authentication required."))
			return
		}
		if !user.HasRole(roles...) {
			utils.Fail(ctx, apperror.NewForbidden("Access denied. Insufficient permissions."))
			return
		}
		ctx.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

func bearerToken(ctx *gin.Context) (string, error) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", apperror.NewUnauthorized("Access denied. No token provided.")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperror.NewUnauthorized("Invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", apperror.NewUnauthorized("Access denied. No token provided.")
	}
	return token, nil
}

func authenticate(ctx *gin.Context, verifier TokenVerifier, users IdentityResolver, token string) (*models.User, error) {
	claims, err := verifier.Verify(ctx.Request.Context(), token)
	if err != nil {
		utils.Logger.Debug("token rejected", zap.Error(err), zap.String("request_id", ctx.GetString(utils.RequestIDKey)))
		return nil, apperror.NewUnauthorized("Invalid token")
	}

	user, err := users.ResolveIdentity(ctx.Request.Context(), claims)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.NewForbidden("Account is deactivated")
	}
	return user, nil
}
