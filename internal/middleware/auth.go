package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/model"
	"github.com/lshigami/Quolls/internal/service"
	"github.com/rs/zerolog/log"
)

const sessionKey = "session"

// Auth validates the bearer token and stashes the session claims on the
// context. Authorization is re-derived from the token on every call; nothing
// is cached between requests.
func Auth(authSvc service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Unauthorized"})
			return
		}
		claims, err := authSvc.ParseToken(tokenString)
		if err != nil {
			log.Warn().Err(err).Str("path", c.FullPath()).Msg("Auth: invalid session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Unauthorized"})
			return
		}
		c.Set(sessionKey, claims)
		c.Next()
	}
}

// RequireAdmin gates the admin routes: reset, attempt listing, export,
// authoring. Runs after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Session(c)
		if claims == nil || claims.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "Admin role required"})
			return
		}
		c.Next()
	}
}

// Session returns the claims set by Auth, or nil on an unauthenticated
// context.
func Session(c *gin.Context) *service.SessionClaims {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	claims, ok := v.(*service.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
