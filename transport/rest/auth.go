package rest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/leaflink/leaflink"
)

const (
	sessionLocalsKey = "session"
	callerLocalsKey  = "caller"
)

type AuthController struct {
	SessionStore leaflink.SessionStore
}

func (c *AuthController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Post("/auth/logout", combineHandlers(requestAuthorizer, c.serveLogout))
}

func (c *AuthController) serveLogout(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(leaflink.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if err := c.SessionStore.InvalidateByAuthToken(session.Token); err != nil {
		if errors.Is(err, leaflink.ErrSessionNotFound) {
			return fiber.ErrUnauthorized
		}
		return fmt.Errorf("invalidate session: %w", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// RequestAuthorizer resolves the bearer token into the calling account and
// refuses requests without one.
func RequestAuthorizer(sessionStore leaflink.SessionStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		auth := ctx.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return fiber.ErrUnauthorized
		}
		return authorize(ctx, sessionStore, auth)
	}
}

// OptionalAuthorizer resolves the caller when a bearer token is present and
// lets anonymous requests through otherwise.
func OptionalAuthorizer(sessionStore leaflink.SessionStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		auth := ctx.Get(fiber.HeaderAuthorization)
		if auth == "" {
			ctx.Locals(callerLocalsKey, leaflink.AccountId(""))
			return nil
		}
		return authorize(ctx, sessionStore, auth)
	}
}

func authorize(ctx *fiber.Ctx, sessionStore leaflink.SessionStore, auth string) error {
	if !strings.HasPrefix(auth, "Bearer ") {
		return fiber.NewError(fiber.ErrBadRequest.Code, "invalid auth type")
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	session, err := sessionStore.AcquireAndRefresh(ctx.Context(), token, ctx.IP(),
		string(ctx.Request().Header.UserAgent()))
	if err != nil {
		if errors.Is(err, leaflink.ErrSessionNotFound) {
			return fiber.ErrUnauthorized
		}
		return fmt.Errorf("acquire and refresh session: %w", err)
	}

	requestLog(ctx).
		WithField("account_id", session.AccountId).
		Infoln("Authorized access.")

	ctx.Locals(sessionLocalsKey, session)
	ctx.Locals(callerLocalsKey, session.AccountId)
	return nil
}

func callerOf(ctx *fiber.Ctx) (leaflink.AccountId, bool) {
	caller, ok := ctx.Locals(callerLocalsKey).(leaflink.AccountId)
	return caller, ok
}
