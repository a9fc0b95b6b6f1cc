package controllers

import (
	"go-approvals/internal/service"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	Service service.NotificationService
}

func NewNotificationController(service service.NotificationService) *NotificationController {
	return &NotificationController{Service: service}
}

// GetNotifications godoc
// @Summary      List notifications for the authenticated user
// @Tags         notifications
// @Produce      json
// @Param        page query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200  {object} map[string]interface{}
// @Router       /notifications [get]
func (c *NotificationController) GetNotifications(ctx *fiber.Ctx) error {
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))

	notifications, total, err := c.Service.GetUserNotifications(ctx.Context(), claimsFrom(ctx).UserID, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUnreadCount godoc
// @Summary      Unread notification count
// @Tags         notifications
// @Produce      json
// @Success      200  {object} map[string]int64
// @Router       /notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount(ctx *fiber.Ctx) error {
	count, err := c.Service.GetUnreadCount(ctx.Context(), claimsFrom(ctx).UserID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
// @Summary      Mark one notification as read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200  {object} map[string]string
// @Router       /notifications/{id}/read [post]
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	if err := c.Service.MarkAsRead(ctx.Context(), ctx.Params("id"), claimsFrom(ctx).UserID); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead godoc
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Produce      json
// @Success      200  {object} map[string]string
// @Router       /notifications/read-all [post]
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	if err := c.Service.MarkAllAsRead(ctx.Context(), claimsFrom(ctx).UserID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "All notifications marked as read"})
}
