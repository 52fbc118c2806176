package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatmitra/backend/internal/chathub"
	"chatmitra/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bearerToken extracts the JWT from the Authorization header, falling back
// to the token query parameter since browsers cannot set headers on
// WebSocket requests.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("token")
}

// ServeWebSocket upgrades the HTTP connection and hands it to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	anonID, err := h.validateAndGetAnonID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("handler: websocket upgrade for %s: %v", anonID, err)
		return
	}

	client := &chathub.WebSocketClient{
		AnonID: anonID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan models.Envelope, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
