package controller

import (
	"strconv"
	"time"

	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICreditController interface {
	RegisterRoutes(r fiber.Router)
	GetBalance(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	ReportUsage(ctx *fiber.Ctx) error
	Adjust(ctx *fiber.Ctx) error
}

type creditController struct {
	service service.ICreditService
}

func NewCreditController(service service.ICreditService) ICreditController {
	return &creditController{service: service}
}

func (c *creditController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/credits")
	h.Get("/balance", serverutils.JwtMiddleware, c.GetBalance)
	h.Get("/history", serverutils.JwtMiddleware, c.GetHistory)

	admin := r.Group("/admin/credits")
	admin.Post("/adjust", serverutils.JwtMiddleware, serverutils.AdminOnlyMiddleware, c.Adjust)

	// Service-to-service: the chat collaborator reports observed token usage.
	internal := r.Group("/internal")
	internal.Post("/usage", serverutils.InternalAuthMiddleware, c.ReportUsage)
}

func (c *creditController) GetBalance(ctx *fiber.Ctx) error {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "invalid user identity"))
	}

	res, err := c.service.GetBalance(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credit balance", res))
}

func (c *creditController) GetHistory(ctx *fiber.Ctx) error {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "invalid user identity"))
	}

	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", "20"))

	filter := &dto.HistoryFilter{
		TransactionType: ctx.Query("type"),
	}
	if from := ctx.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid 'from' timestamp, expected RFC3339"))
		}
		filter.From = &t
	}
	if to := ctx.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid 'to' timestamp, expected RFC3339"))
		}
		filter.To = &t
	}

	res, err := c.service.GetHistory(ctx.Context(), userId, page, limit, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Transaction history", res))
}

func (c *creditController) ReportUsage(ctx *fiber.Ctx) error {
	var req dto.ReportUsageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ReportUsage(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Usage recorded", res))
}

func (c *creditController) Adjust(ctx *fiber.Ctx) error {
	var req dto.AdjustCreditRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Adjust(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credit adjustment applied", res))
}
