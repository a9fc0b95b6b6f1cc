package controllers

import (
	"go-approvals/internal/models"
	"go-approvals/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	Service service.TemplateService
}

func NewTemplateController(service service.TemplateService) *TemplateController {
	return &TemplateController{Service: service}
}

// CreateTemplate godoc
// @Summary      Create workflow template version
// @Description  Store a new immutable version of a workflow template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        input body models.WorkflowTemplate true "Template"
// @Success      201  {object} models.WorkflowTemplate
// @Failure      400  {object} map[string]string
// @Router       /templates [post]
func (c *TemplateController) CreateTemplate(ctx *fiber.Ctx) error {
	var input models.WorkflowTemplate
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.CreateTemplate(ctx.Context(), &input); err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// GetTemplate godoc
// @Summary      Get template by ID
// @Tags         templates
// @Produce      json
// @Param        id path string true "Template ID"
// @Success      200  {object} models.WorkflowTemplate
// @Failure      404  {object} map[string]string
// @Router       /templates/{id} [get]
func (c *TemplateController) GetTemplate(ctx *fiber.Ctx) error {
	template, err := c.Service.GetTemplate(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(template)
}

// ListTemplates godoc
// @Summary      List all template versions
// @Tags         templates
// @Produce      json
// @Success      200  {array} models.WorkflowTemplate
// @Router       /templates [get]
func (c *TemplateController) ListTemplates(ctx *fiber.Ctx) error {
	templates, err := c.Service.ListTemplates(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(templates)
}

// SetActive godoc
// @Summary      Activate or deactivate a template version
// @Description  Deactivation blocks new submissions; in-flight requests continue unaffected
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        id path string true "Template ID"
// @Param        input body map[string]bool true "Active flag"
// @Success      200  {object} map[string]string
// @Router       /templates/{id}/active [patch]
func (c *TemplateController) SetActive(ctx *fiber.Ctx) error {
	var body struct {
		Active bool `json:"active"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.SetActive(ctx.Context(), ctx.Params("id"), body.Active); err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Template updated successfully"})
}
