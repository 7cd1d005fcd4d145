package delivery

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Session is one live client connection. Send must never block; it
// reports false when the payload was dropped.
type Session interface {
	Send(data []byte) bool
	Close()
}

// Hub maps a user identity to at most one live session and fans events
// out to it. It persists nothing; a missed event is recovered by the
// client's next refetch.
type Hub struct {
	sessions map[uuid.UUID]Session
	logger   *WebSocketLogger
	mu       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]Session),
		logger:   NewWebSocketLogger(),
	}
}

// Register binds userID to s. An existing session for the same user is
// closed and replaced: one active connection per user.
func (h *Hub) Register(userID uuid.UUID, s Session) {
	h.mu.Lock()
	prev := h.sessions[userID]
	h.sessions[userID] = s
	h.mu.Unlock()

	if prev != nil {
		prev.Close()
		h.logger.Info("session replaced", userID)
	} else {
		h.logger.Info("session registered", userID)
	}
}

// Unregister removes the binding, but only while s is still the current
// session, so a stale connection closing cannot evict its replacement.
func (h *Hub) Unregister(userID uuid.UUID, s Session) {
	h.mu.Lock()
	current, ok := h.sessions[userID]
	if ok && current == s {
		delete(h.sessions, userID)
	}
	h.mu.Unlock()

	if ok && current == s {
		h.logger.Info("session unregistered", userID)
	}
}

func (h *Hub) SessionFor(userID uuid.UUID) (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[userID]
	return s, ok
}

// Publish delivers one event to userID, best effort. An offline
// recipient or a full send buffer drops the event silently; that is
// steady state, not an error.
func (h *Hub) Publish(userID uuid.UUID, name EventName, payload interface{}) {
	event, err := NewEvent(name, payload)
	if err != nil {
		h.logger.Error("event marshal failed", userID, err)
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", userID, err)
		return
	}

	h.mu.RLock()
	s, ok := h.sessions[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !s.Send(data) {
		h.logger.Warn("send buffer full, event dropped", userID)
	}
}

// Stop closes every live session.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		s.Close()
	}
	h.sessions = make(map[uuid.UUID]Session)
}
