package services

import (
	"strings"

	"wallcraft/internal/wallpaper"

	"github.com/charmbracelet/log"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func (a *Api) WsUpgrade() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Notifications streams state events for the session named in the path.
// The current state is sent first so a reconnecting page catches up.
func (a *Api) Notifications() fiber.Handler {
	logger := log.With("component", "ws")

	return websocket.New(func(conn *websocket.Conn) {
		sessionID := strings.TrimSpace(conn.Params("id"))
		sess, ok := a.registry.Get(sessionID)
		if !ok {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session"))
			_ = conn.Close()
			return
		}

		client := newWSClient(sess.ID, conn)
		a.hub.Add(client)
		logger.Debug("socket opened", "sessionId", sess.ID)

		go client.writeLoop()
		sess.Observe(func(state wallpaper.GenerationState, version uint64) {
			a.hub.SendState(sess.ID, state, version)
		})

		client.readPump(func() {
			a.hub.Remove(client)
			logger.Debug("socket closed", "sessionId", sess.ID)
		})
	})
}
