package services

import (
	"strings"
	"time"

	"wallcraft/internal/presenter"
	"wallcraft/internal/session"
	"wallcraft/internal/wallpaper"
	"wallcraft/types"
	"wallcraft/web"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionCookie = "wallcraft_session"
	sessionHeader = "X-Session-Id"
	sessionKey    = "session"
)

func (a *Api) Index() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return ctx.Send(web.Index)
	}
}

func (a *Api) Health() fiber.Handler {
	return func(ctx *fiber.Ctx) error {

		return ctx.Status(fiber.StatusOK).JSON(types.HealthResponse{
			Status:    fiber.StatusOK,
			TimeStamp: time.Now().Unix(),
			Sessions:  a.registry.Len(),
		})
	}
}

func (a *Api) Options() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(types.OptionsResponse{
			DefaultPrompt:      wallpaper.DefaultPrompt,
			DefaultAspectRatio: wallpaper.DefaultAspectRatio,
			Presets:            wallpaper.Presets(),
			AspectRatios:       wallpaper.AspectRatios(),
			Accept:             "image/*",
			DownloadFilename:   presenter.DownloadFilename,
		})
	}
}

// WithSession resolves the caller's session from the cookie or the
// X-Session-Id header, creating one when neither names a live session.
func (a *Api) WithSession() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id := strings.TrimSpace(ctx.Get(sessionHeader))
		if id == "" {
			id = ctx.Cookies(sessionCookie)
		}

		sess, created := a.registry.GetOrCreate(id)
		if created {
			HttpLogger("session", ctx).Debug("session created", "sessionId", sess.ID)
			ctx.Cookie(&fiber.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		ctx.Set(sessionHeader, sess.ID)
		ctx.Locals(sessionKey, sess)
		return ctx.Next()
	}
}

func currentSession(ctx *fiber.Ctx) *session.Session {
	sess, _ := ctx.Locals(sessionKey).(*session.Session)
	return sess
}

func badRequest(ctx *fiber.Ctx, err error, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
		Error:   err.Error(),
		Message: message,
	})
}
