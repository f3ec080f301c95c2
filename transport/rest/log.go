package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogHandler logs every request once it has been handled, together with
// the response status and latency.
func LogHandler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		started := time.Now()
		err := ctx.Next()

		entry := requestLog(ctx).
			WithField("status", ctx.Response().StatusCode()).
			WithField("latency", time.Since(started))
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Infoln("Handled request.")
		return err
	}
}
