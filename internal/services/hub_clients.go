package services

import (
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 16
)

type WSClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newWSClient(id string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *WSClient) close() {
	safeCloseBytes(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *WSClient) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the read deadline alive; clients never send commands
// over the socket.
func (c *WSClient) readPump(onDone func()) {
	defer onDone()
	c.conn.SetReadLimit(1 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
