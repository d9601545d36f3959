package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shoplive/liveroom/pkg/jwt"
	"github.com/shoplive/liveroom/pkg/response"
)

const (
	UserIDKey      = "user_id"
	DisplayNameKey = "display_name"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// AuthMiddleware validates JWT tokens issued by the external auth collaborator.
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// RequireAuth returns a Gin middleware that validates the bearer token
// and stores the caller's identity in the gin context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ValidateToken(strings.TrimPrefix(header, BearerPrefix))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(DisplayNameKey, claims.DisplayName)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID from the gin context.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetDisplayName returns the authenticated display name from the gin context.
func GetDisplayName(c *gin.Context) string {
	if v, ok := c.Get(DisplayNameKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
