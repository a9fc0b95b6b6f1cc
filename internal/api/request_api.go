package api

import (
	"go-approvals/internal/config"
	"go-approvals/internal/controllers"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RequestApi struct {
	controller *controllers.RequestController
	config     *config.Config
}

func NewRequestApi(controller *controllers.RequestController, config *config.Config) *RequestApi {
	return &RequestApi{
		controller: controller,
		config:     config,
	}
}

func (h *RequestApi) Setup(app *fiber.App) {
	requests := app.Group("/api/requests", middleware.AuthMiddleware(h.config.SkipAuth))

	requests.Post("/", h.controller.Submit)
	requests.Get("/", h.controller.List)
	requests.Get("/inbox", h.controller.Inbox)
	requests.Get("/export", h.controller.Export)
	requests.Post("/bulk-decide", h.controller.BulkDecide)
	requests.Get("/:id", h.controller.GetStatus)
	requests.Get("/:id/history", h.controller.History)
	requests.Post("/:id/approve", h.controller.Approve)
	requests.Post("/:id/reject", h.controller.Reject)
	requests.Post("/:id/recall", h.controller.Recall)
	requests.Post("/:id/cancel", h.controller.Cancel)
}
