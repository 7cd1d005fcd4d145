package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"whispr/internal/delivery"
	"whispr/internal/services"
	"whispr/internal/transport/httpdto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades authenticated requests into hub sessions.
type WebSocketHandler struct {
	hub    *delivery.Hub
	auth   *services.AuthService
	users  *services.UserService
	logger *delivery.WebSocketLogger
}

func NewWebSocketHandler(hub *delivery.Hub, auth *services.AuthService, users *services.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		auth:   auth,
		users:  users,
		logger: delivery.NewWebSocketLogger(),
	}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("missing token", "UNAUTHORIZED"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid token", "UNAUTHORIZED"))
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid user id", "UNAUTHORIZED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", userID, err)
		return
	}

	client := delivery.NewClient(h.hub, conn, userID, h.logger)
	// Pongs prove the connection is alive; keep the TTL'd presence
	// mark from lapsing on long-lived connections.
	client.OnActivity(func() {
		h.users.RefreshPresence(context.Background(), userID)
	})
	h.hub.Register(userID, client)
	h.users.SetOnline(c.Request.Context(), userID, true)

	go client.WritePump()
	go func() {
		client.ReadPump()
		// A replaced session ending must not mark the replacement
		// offline.
		if _, ok := h.hub.SessionFor(userID); !ok {
			h.users.SetOnline(context.Background(), userID, false)
		}
	}()
}

func (h *WebSocketHandler) extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return ""
}
