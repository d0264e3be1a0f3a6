package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forgeci/runner-autoscaler/internal/auth"
)

type AuthHandler struct {
	adminToken  string
	authService *auth.Service
}

func NewAuthHandler(adminToken string, authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		adminToken:  adminToken,
		authService: authService,
	}
}

type TokenRequest struct {
	AdminToken string `json:"admin_token" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token exchanges the static admin token for a short-lived JWT.
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.AdminToken), []byte(h.adminToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expiresAt, err := h.authService.IssueToken("admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
