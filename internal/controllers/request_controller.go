package controllers

import (
	"errors"

	"go-approvals/internal/engine"
	"go-approvals/internal/models"
	"go-approvals/internal/service"
	"go-approvals/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type RequestController struct {
	Engine        engine.Engine
	AuditService  service.AuditService
	ExportService service.ExportService
}

func NewRequestController(eng engine.Engine, auditService service.AuditService, exportService service.ExportService) *RequestController {
	return &RequestController{
		Engine:        eng,
		AuditService:  auditService,
		ExportService: exportService,
	}
}

// statusForError maps the engine's classified errors onto HTTP codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrTemplateNotFound), errors.Is(err, engine.ErrRequestNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrInvalidTemplate), errors.Is(err, engine.ErrInvalidDecision):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrNotAnApprover):
		return fiber.StatusForbidden
	case errors.Is(err, engine.ErrRequestNotPending),
		errors.Is(err, engine.ErrNotRecallable),
		errors.Is(err, engine.ErrNotCancellable),
		errors.Is(err, engine.ErrAlreadyDecided):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrDirectoryUnavailable),
		errors.Is(err, engine.ErrConcurrentModification):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func claimsFrom(ctx *fiber.Ctx) *utils.UserClaims {
	return ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
}

// Submit godoc
// @Summary      Submit an approval request
// @Description  Create a new approval request instance from an active workflow template
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        input body engine.SubmitInput true "Submission"
// @Success      201  {object} models.ApprovalRequest
// @Failure      400  {object} map[string]string
// @Failure      404  {object} map[string]string
// @Router       /requests [post]
func (c *RequestController) Submit(ctx *fiber.Ctx) error {
	var input engine.SubmitInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if input.Transaction.RequesterID == "" {
		input.Transaction.RequesterID = claimsFrom(ctx).UserID
	}

	request, err := c.Engine.Submit(ctx.Context(), input)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(request)
}

// Approve godoc
// @Summary      Approve the current level
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        id path string true "Request ID"
// @Param        input body map[string]string false "Comment"
// @Success      200  {object} models.ApprovalRequest
// @Failure      403  {object} map[string]string
// @Failure      409  {object} map[string]string
// @Router       /requests/{id}/approve [post]
func (c *RequestController) Approve(ctx *fiber.Ctx) error {
	return c.decide(ctx, models.ActionApprove)
}

// Reject godoc
// @Summary      Reject the request
// @Description  A single rejection at any level is terminal for the whole request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        id path string true "Request ID"
// @Param        input body map[string]string false "Comment"
// @Success      200  {object} models.ApprovalRequest
// @Failure      403  {object} map[string]string
// @Failure      409  {object} map[string]string
// @Router       /requests/{id}/reject [post]
func (c *RequestController) Reject(ctx *fiber.Ctx) error {
	return c.decide(ctx, models.ActionReject)
}

func (c *RequestController) decide(ctx *fiber.Ctx, action models.DecisionAction) error {
	requestID := ctx.Params("id")

	var body struct {
		Comment string `json:"comment"`
	}
	// body is optional
	_ = ctx.BodyParser(&body)

	request, err := c.Engine.Decide(ctx.Context(), requestID, claimsFrom(ctx).UserID, action, body.Comment)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(request)
}

// BulkDecide godoc
// @Summary      Decide on multiple requests
// @Description  Each request is processed independently with its own outcome; there is no cross-request transaction
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        input body object true "Bulk decision"
// @Success      200  {array} engine.BulkOutcome
// @Router       /requests/bulk-decide [post]
func (c *RequestController) BulkDecide(ctx *fiber.Ctx) error {
	var body struct {
		RequestIDs []string              `json:"request_ids"`
		Action     models.DecisionAction `json:"action"`
		Comment    string                `json:"comment"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(body.RequestIDs) == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "request_ids is required"})
	}

	outcomes := c.Engine.BulkDecide(ctx.Context(), body.RequestIDs, claimsFrom(ctx).UserID, body.Action, body.Comment)
	return ctx.JSON(outcomes)
}

// Recall godoc
// @Summary      Recall a pending request
// @Description  Permitted only for the requester while nobody at the current level has decided
// @Tags         requests
// @Produce      json
// @Param        id path string true "Request ID"
// @Success      200  {object} models.ApprovalRequest
// @Failure      409  {object} map[string]string
// @Router       /requests/{id}/recall [post]
func (c *RequestController) Recall(ctx *fiber.Ctx) error {
	request, err := c.Engine.Recall(ctx.Context(), ctx.Params("id"), claimsFrom(ctx).UserID)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(request)
}

// Cancel godoc
// @Summary      Cancel a pending request (administrative)
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        id path string true "Request ID"
// @Param        input body map[string]string false "Reason"
// @Success      200  {object} models.ApprovalRequest
// @Failure      409  {object} map[string]string
// @Router       /requests/{id}/cancel [post]
func (c *RequestController) Cancel(ctx *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	// body is optional
	_ = ctx.BodyParser(&body)

	request, err := c.Engine.Cancel(ctx.Context(), ctx.Params("id"), claimsFrom(ctx).UserID, body.Reason)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(request)
}

// Inbox godoc
// @Summary      Approval inbox
// @Description  Pending requests awaiting a decision from the authenticated approver
// @Tags         requests
// @Produce      json
// @Success      200  {array} models.ApprovalRequest
// @Router       /requests/inbox [get]
func (c *RequestController) Inbox(ctx *fiber.Ctx) error {
	inbox, err := c.Engine.GetInboxFor(ctx.Context(), claimsFrom(ctx).UserID)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(inbox)
}

// GetStatus godoc
// @Summary      Request status snapshot
// @Tags         requests
// @Produce      json
// @Param        id path string true "Request ID"
// @Success      200  {object} models.ApprovalRequest
// @Failure      404  {object} map[string]string
// @Router       /requests/{id} [get]
func (c *RequestController) GetStatus(ctx *fiber.Ctx) error {
	request, err := c.Engine.GetStatus(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(request)
}

// List godoc
// @Summary      List requests
// @Tags         requests
// @Produce      json
// @Param        status query string false "Status filter"
// @Param        page query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200  {object} map[string]interface{}
// @Router       /requests [get]
func (c *RequestController) List(ctx *fiber.Ctx) error {
	status := models.RequestStatus(ctx.Query("status"))
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 50))

	requests, total, err := c.Engine.List(ctx.Context(), status, page, limit)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"data":  requests,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// History godoc
// @Summary      Audit trail of a request
// @Tags         requests
// @Produce      json
// @Param        id path string true "Request ID"
// @Success      200  {array} models.AuditLog
// @Router       /requests/{id}/history [get]
func (c *RequestController) History(ctx *fiber.Ctx) error {
	logs, err := c.AuditService.ListByRequest(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}

// Export godoc
// @Summary      Export the approval register
// @Description  Download the register as an xlsx spreadsheet
// @Tags         requests
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status query string false "Status filter"
// @Success      200  {file} binary
// @Router       /requests/export [get]
func (c *RequestController) Export(ctx *fiber.Ctx) error {
	status := models.RequestStatus(ctx.Query("status"))

	file, err := c.ExportService.BuildRegister(ctx.Context(), status)
	if err != nil {
		return ctx.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	defer file.Close()

	buf, err := file.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="`+service.Filename(status)+`"`)
	return ctx.Send(buf.Bytes())
}
