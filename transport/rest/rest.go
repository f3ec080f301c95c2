package rest

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/leaflink/leaflink"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
}

func requestLog(ctx *fiber.Ctx) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"remote_addr":     ctx.Context().RemoteAddr(),
		"method":          ctx.Method(),
		"path":            ctx.Path(),
		"referer":         ctx.Get(fiber.HeaderReferer),
		"user_agent":      ctx.Get(fiber.HeaderUserAgent),
		"x_forwarded_for": ctx.Get(fiber.HeaderXForwardedFor),
	})
}

// domainErrors maps domain failures to the status they answer with. The
// reply carries the sentinel's own message, never the wrapped chain.
var domainErrors = []struct {
	err    error
	status int
}{
	{leaflink.ErrUnauthorized, fiber.StatusForbidden},
	{leaflink.ErrProfileNotFound, fiber.StatusNotFound},
	{leaflink.ErrAlreadyInitialized, fiber.StatusConflict},
	{leaflink.ErrInvalidText, fiber.StatusBadRequest},
}

func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return replyError(ctx, fe.Code, fe.Error())
	}
	if errors.Is(err, leaflink.ErrSessionNotFound) {
		return replyError(ctx, fiber.StatusUnauthorized, fiber.ErrUnauthorized.Error())
	}
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			requestLog(ctx).WithError(err).Debugln("Refused request.")
			return replyError(ctx, de.status, de.err.Error())
		}
	}

	requestLog(ctx).WithError(err).Errorln("Internal server error.")
	// internal errors stay private
	return replyError(ctx, fiber.StatusInternalServerError, fiber.ErrInternalServerError.Error())
}

func replyError(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(&ErrorResponse{ErrorMessage: message})
}

func NotFoundHandler(c *fiber.Ctx) error {
	return fiber.ErrNotFound
}

// combineHandlers runs handlers in order and stops at the first error.
func combineHandlers(handlers ...fiber.Handler) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		for _, handler := range handlers {
			if err := handler(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func JsonErrorMessageResponse(message string) string {
	bytes, err := json.Marshal(ErrorResponse{ErrorMessage: message})
	if err != nil {
		panic(err)
	}
	return string(bytes)
}
