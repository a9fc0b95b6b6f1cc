package api

import (
	"go-approvals/internal/config"
	"go-approvals/internal/controllers"
	"go-approvals/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateApi struct {
	controller *controllers.TemplateController
	config     *config.Config
}

func NewTemplateApi(controller *controllers.TemplateController, config *config.Config) *TemplateApi {
	return &TemplateApi{
		controller: controller,
		config:     config,
	}
}

func (h *TemplateApi) Setup(app *fiber.App) {
	templates := app.Group("/api/templates", middleware.AuthMiddleware(h.config.SkipAuth))

	templates.Post("/", h.controller.CreateTemplate)
	templates.Get("/", h.controller.ListTemplates)
	templates.Get("/:id", h.controller.GetTemplate)
	templates.Patch("/:id/active", h.controller.SetActive)
}
