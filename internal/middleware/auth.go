package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intihelp/internal/authz"
	"intihelp/internal/services"
)

const (
	ctxUserID  = "user_id"
	ctxRoleID  = "role_id"
	ctxSession = "session"
)

// endpoints that do not require a token
func isPublicPath(path string) bool {
	switch path {
	case "/login", "/register", "/refresh", "/password/forgot", "/password/reset", "/telegram/webhook":
		return true
	}
	if strings.HasPrefix(path, "/swagger") ||
		strings.HasPrefix(path, "/catalog") ||
		strings.HasPrefix(path, "/healthz") {
		return true
	}
	return false
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// AuthMiddleware resolves the bearer token into an authz.Session and stores
// it in both the gin context and the request context.
func AuthMiddleware(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := auth.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		sess := authz.Session{UserID: claims.UserID, RoleID: claims.RoleID}
		c.Set(ctxUserID, sess.UserID)
		c.Set(ctxRoleID, sess.RoleID)
		c.Set(ctxSession, sess)
		c.Request = c.Request.WithContext(authz.WithSession(c.Request.Context(), sess))

		c.Next()
	}
}

// SessionFromContext returns the session set by AuthMiddleware.
func SessionFromContext(c *gin.Context) (authz.Session, bool) {
	if v, ok := c.Get(ctxSession); ok {
		if s, ok := v.(authz.Session); ok {
			return s, true
		}
	}
	return authz.SessionFrom(c.Request.Context())
}
