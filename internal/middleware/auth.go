package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

const actingUserKey = "actingUser"

// UserLoader resolves the user a token was issued to.
type UserLoader interface {
	Lookup(ctx context.Context, id string) (models.User, error)
}

// AuthMiddleware creates a middleware for JWT authentication. The token's
// user is re-read on every request so disabled accounts lose access at once.
func AuthMiddleware(cfg *config.Config, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		user, err := users.Lookup(c.Request.Context(), claims.UserID)
		if errors.Is(err, accounts.ErrUserNotFound) {
			utils.Unauthorized(c, "User no longer exists")
			c.Abort()
			return
		}
		if err != nil {
			utils.ServiceUnavailable(c, "Could not load user")
			c.Abort()
			return
		}
		if !user.Enabled() {
			utils.Forbidden(c, "This account has been disabled")
			c.Abort()
			return
		}

		c.Set(actingUserKey, user)
		c.Next()
	}
}

// TitleAuthMiddleware limits a route to the given titles.
// It should be used *after* AuthMiddleware.
func TitleAuthMiddleware(allowed ...models.Title) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := ActingUser(c)
		if !ok {
			utils.InternalServerError(c, "Acting user not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, t := range allowed {
			if user.Title == t {
				c.Next()
				return
			}
		}
		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// ActingUser returns the authenticated user of the request.
func ActingUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(actingUserKey)
	if !exists {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
