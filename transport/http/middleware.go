package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/internal/metrics"
	"github.com/predictprotocol/walletauth/service"
)

const (
	sessionKey = "authSession"
	userKey    = "authUser"
)

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(auth[len("Bearer "):])
	return token, token != ""
}

func currentSession(c *gin.Context) *core.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*core.Session)
	return session
}

func currentUser(c *gin.Context) *core.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	usr, _ := v.(*core.User)
	return usr
}

// AuthMiddleware validates the bearer token and stores the session in the
// request context. Expired tokens are reported separately from malformed
// or mis-signed ones so clients can trigger a re-login instead of showing
// a generic failure.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header", "reason": "missing"})
			return
		}

		session, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			metrics.TokenValidations.WithLabelValues("rejected").Inc()
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "reason": "expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "reason": "invalid"})
			}
			return
		}
		metrics.TokenValidations.WithLabelValues("accepted").Inc()

		c.Set(sessionKey, session)

		c.Next()
	}
}

// RequireExistingUser resolves the session subject against the user
// directory. A valid token whose user has been deleted is rejected.
func RequireExistingUser(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := currentSession(c)
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "reason": "invalid"})
			return
		}

		usr, err := authService.ResolveUser(c.Request.Context(), session)
		if err != nil {
			if errors.Is(err, core.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user", "reason": "invalid"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
			return
		}

		c.Set(userKey, usr)

		c.Next()
	}
}
