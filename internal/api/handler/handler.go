// Package handler wires the HTTP surface: anonymous identity issuance, the
// WebSocket upgrade, and liveness/stats endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatmitra/backend/internal/chathub"
)

// Handler holds the hub reference and the JWT signing secret.
type Handler struct {
	Hub       *chathub.Hub
	jwtSecret []byte
}

func NewHandler(hub *chathub.Hub, jwtSecret string) *Handler {
	return &Handler{Hub: hub, jwtSecret: []byte(jwtSecret)}
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "chatmitra server alive")
}

// GetStats reports current hub counters.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Snapshot())
}
