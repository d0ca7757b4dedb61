package handler

import (
	"net/http"
	"strconv"

	"modguard/backend/internal/events"
	"modguard/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Lock down in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and attaches it to the live
// vote feed. The token travels as a query parameter because browser
// WebSocket clients cannot set headers.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}

	moderatorID, err := validateAndGetModeratorID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	subscriber := &events.WebSocketSubscriber{
		ModeratorID: strconv.FormatInt(moderatorID, 10),
		Conn:        conn,
		Dispatcher:  h.Dispatcher,
		Send:        make(chan models.VoteUpdate, 256),
	}

	// The dispatcher starts the subscriber's pumps on registration.
	h.Dispatcher.RegisterCh <- subscriber
}
