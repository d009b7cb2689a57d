package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Nonce issues a signing challenge for a wallet address. The address is
// taken from the JSON body on POST and from the query string on GET.
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var address string

	if c.Request.Method == http.MethodGet {
		address = c.Query("address")
	} else {
		var req struct {
			Address string `json:"walletAddress" binding:"required,eth_addr"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		address = req.Address
	}

	challenge, err := h.authService.IssueChallenge(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":     challenge.Nonce,
		"message":   challenge.Message,
		"expiresAt": challenge.ExpiresAt,
	})
}

// Verify checks a signed challenge and opens a session.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required,eth_addr"`
		Signature string `json:"signature" binding:"required"`
		Message   string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, usr, err := h.authService.VerifyLogin(c.Request.Context(), req.Address, req.Signature, req.Message)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrAddressMismatch):
			statusCode = http.StatusUnauthorized
			errorMsg = "Signature does not match address"
		case errors.Is(err, core.ErrChallengeNotFound):
			statusCode = http.StatusUnauthorized
			errorMsg = "Challenge not found or expired"
		case errors.Is(err, core.ErrMessageMismatch):
			statusCode = http.StatusUnauthorized
			errorMsg = "Message does not match issued challenge"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  usr,
	})
}

// Refresh exchanges a valid bearer token for a fresh one.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}

	fresh, err := h.authService.RefreshToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "reason": "expired"})
			return
		}
		if errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "reason": "invalid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": fresh})
}

// Logout acknowledges a session teardown. All durable state lives on the
// client, so the server only emits the logout event.
func (h *AuthHandlers) Logout(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	h.authService.AnnounceLogout(c.Request.Context(), session)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandlers) Me(c *gin.Context) {
	usr := currentUser(c)
	if usr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": usr})
}

// Healthz reports process liveness.
func (h *AuthHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
