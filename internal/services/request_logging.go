package services

import (
	"strings"
	"time"

	"wallcraft/utils"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

const reqIDKey = "reqId"

func RequestLogger() fiber.Handler {
	base := log.With("component", "http")

	return func(c *fiber.Ctx) error {
		reqID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if reqID == "" || len(reqID) > 64 {
			reqID = utils.NewRequestID()
		}
		c.Locals(reqIDKey, reqID)
		c.Set(fiber.HeaderXRequestID, reqID)

		start := time.Now()
		// copies; fiber reuses the underlying buffers after the handler returns
		path := strings.Clone(c.Path())
		method := strings.Clone(c.Method())

		base.Debug("request started", "reqId", reqID, "method", method, "path", path, "ip", c.IP())

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		fields := []any{"reqId", reqID, "method", method, "path", path, "status", status, "dur", time.Since(start).String()}
		if sid := c.GetRespHeader(sessionHeader); sid != "" {
			fields = append(fields, "sessionId", sid)
		}

		switch {
		case err != nil:
			base.Error("request failed", append(fields, "err", err)...)
		case status >= fiber.StatusInternalServerError:
			base.Error("request completed", fields...)
		case status >= fiber.StatusBadRequest:
			base.Warn("request completed", fields...)
		default:
			base.Info("request completed", fields...)
		}
		return err
	}
}

func ReqID(c *fiber.Ctx) string {
	if v := c.Locals(reqIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func HttpLogger(action string, c *fiber.Ctx) *log.Logger {
	return log.With(
		"component", "api",
		"action", action,
		"reqId", ReqID(c),
		"method", c.Method(),
		"path", c.Path(),
	)
}
