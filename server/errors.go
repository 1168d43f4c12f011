package server

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/Naranpurev/devcamper/auth"
)

// ErrorHandler renders every failure as the JSON envelope. Rich errors keep
// their category and text code; anything untyped collapses into a 500.
func ErrorHandler(logger auth.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return c.Status(fiber.StatusBadRequest).JSON(Envelope{
				Success: false,
				Error:   verrs.Error(),
				Code:    "VALIDATION_ERROR",
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(Envelope{
				Success: false,
				Error:   fiberErr.Message,
			})
		}

		var richErr *goerrors.Error
		if !errors.As(err, &richErr) {
			logger.Error("unhandled server error", "error", err, "path", c.Path())
			richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
				WithCode(goerrors.CodeInternal)
		}

		status := richErr.Code
		if status == 0 {
			status = statusFromCategory(richErr.Category)
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"error", richErr.Message,
				"category", richErr.Category,
				"path", c.Path(),
			)
		}

		return c.Status(status).JSON(Envelope{
			Success: false,
			Error:   richErr.Message,
			Code:    richErr.TextCode,
		})
	}
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
