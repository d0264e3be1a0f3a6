package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegistrationTokenIssuer mints short-lived runner registration tokens.
type RegistrationTokenIssuer interface {
	CreateRegistrationToken(ctx context.Context) (string, time.Time, error)
}

type RunnersHandler struct {
	issuer RegistrationTokenIssuer
}

func NewRunnersHandler(issuer RegistrationTokenIssuer) *RunnersHandler {
	return &RunnersHandler{issuer: issuer}
}

type RegistrationTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *RunnersHandler) RegistrationToken(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	token, expiresAt, err := h.issuer.CreateRegistrationToken(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create registration token"})
		return
	}

	c.JSON(http.StatusCreated, RegistrationTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
