package api

import (
	"go-approvals/internal/config"
	"go-approvals/internal/controllers"
	"go-approvals/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	controller *controllers.WebSocketController
	config     *config.Config
}

func NewWebSocketApi(controller *controllers.WebSocketController, config *config.Config) *WebSocketApi {
	return &WebSocketApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the notification stream; auth runs before the upgrade so
// the connection is bound to an approver identity
func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Get("/ws/notifications",
		middleware.AuthMiddleware(h.config.SkipAuth),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
		websocket.New(h.controller.HandleWebSocket))
}
