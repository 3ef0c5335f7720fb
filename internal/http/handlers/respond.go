package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/u2kpay/backend/internal/errs"
	"github.com/u2kpay/backend/internal/http/dto"
	"github.com/u2kpay/backend/internal/middleware"
)

// respondErr maps domain errors to HTTP statuses. The status mapping lives
// here and nowhere deeper: services and repositories only classify.
func respondErr(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := errs.HTTPStatus(err)
	if status >= 500 {
		log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
}
