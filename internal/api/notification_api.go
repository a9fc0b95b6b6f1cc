package api

import (
	"go-approvals/internal/config"
	"go-approvals/internal/controllers"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	controller *controllers.NotificationController
	config     *config.Config
}

func NewNotificationApi(controller *controllers.NotificationController, config *config.Config) *NotificationApi {
	return &NotificationApi{
		controller: controller,
		config:     config,
	}
}

func (h *NotificationApi) Setup(app *fiber.App) {
	notifications := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	notifications.Get("/", h.controller.GetNotifications)
	notifications.Get("/unread-count", h.controller.GetUnreadCount)
	notifications.Post("/read-all", h.controller.MarkAllAsRead)
	notifications.Post("/:id/read", h.controller.MarkAsRead)
}
