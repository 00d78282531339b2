package services

import (
	"encoding/json"
	"sync"

	"wallcraft/internal/presenter"
	"wallcraft/internal/wallpaper"
)

// WSEvent is pushed to a session's socket after every workflow transition.
type WSEvent struct {
	Type      string                    `json:"type"` // always "state"
	SessionID string                    `json:"sessionId"`
	Version   uint64                    `json:"version"`
	State     wallpaper.GenerationState `json:"state"`
	View      presenter.View            `json:"view"`
}

func StateEvent(sessionID string, state wallpaper.GenerationState, version uint64) WSEvent {
	return WSEvent{
		Type:      "state",
		SessionID: sessionID,
		Version:   version,
		State:     state,
		View:      presenter.Render(state),
	}
}

// Hub holds one socket per session. A newer connection for the same session
// replaces the older one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*WSClient
}

func safeCloseBytes(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func NewHub() *Hub {
	return &Hub{
		clients: map[string]*WSClient{},
	}
}

func (h *Hub) Add(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[c.id]; ok {
		old.close()
	}

	h.clients[c.id] = c
}

// Remove drops c if it is still the registered socket for its session.
func (h *Hub) Remove(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		c.close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[string]*WSClient{}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) SendTo(sessionID string, event WSEvent) {
	b, _ := json.Marshal(event)

	// send under the read lock so Add/Remove cannot close the channel mid-send
	h.mu.RLock()
	c := h.clients[sessionID]
	delivered := true
	if c != nil {
		select {
		case c.send <- b:
		default:
			delivered = false
		}
	}
	h.mu.RUnlock()

	if !delivered {
		// slow reader
		h.Remove(c)
	}
}

// SendState is the workflow observer for a session.
func (h *Hub) SendState(sessionID string, state wallpaper.GenerationState, version uint64) {
	h.SendTo(sessionID, StateEvent(sessionID, state, version))
}
