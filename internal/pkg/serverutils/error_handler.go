package serverutils

import (
	"errors"

	"ai-agenthub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps service-layer errors onto HTTP statuses so
// handlers can mostly just `return err`.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, validationErr.Error()))
		}

		// A replayed purchase confirmation already succeeded once; re-acknowledge
		// it so the sender stops retrying.
		if service.IsDuplicateEvent(err) {
			return ctx.Status(fiber.StatusOK).JSON(SuccessResponse[any]("already processed", nil))
		}

		var ledgerErr *service.LedgerWriteError
		if errors.As(err, &ledgerErr) {
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "ledger write failed"))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
}
