package controllers

import (
	"go-approvals/internal/ws"
	"go-approvals/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WebSocketController struct {
	Hub    *ws.Hub
	Logger *zap.Logger
}

func NewWebSocketController(hub *ws.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{Hub: hub, Logger: logger}
}

// HandleWebSocket godoc
// @Summary      Live notification stream
// @Description  Pushes assigned/escalated/completed events to the connected approver
// @Tags         websocket
// @Router       /ws/notifications [get]
func (c *WebSocketController) HandleWebSocket(conn *websocket.Conn) {
	claims, ok := conn.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		conn.Close()
		return
	}

	c.Hub.Register(claims.UserID, conn)
	defer func() {
		c.Hub.Unregister(claims.UserID, conn)
		conn.Close()
	}()

	// Reads only keep the connection alive; the stream is push-based
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			c.Logger.Debug("websocket closed",
				zap.String("actor_id", claims.UserID),
				zap.Error(err))
			return
		}
	}
}
