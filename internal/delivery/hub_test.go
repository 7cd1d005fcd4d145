package delivery

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu        sync.Mutex
	sent      [][]byte
	closed    bool
	rejectAll bool
}

func (s *fakeSession) Send(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectAll {
		return false
	}
	s.sent = append(s.sent, data)
	return true
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSession) events(t *testing.T) []Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.sent))
	for _, data := range s.sent {
		var evt Event
		require.NoError(t, json.Unmarshal(data, &evt))
		out = append(out, evt)
	}
	return out
}

func TestHubPublishToRegisteredSession(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	session := &fakeSession{}
	hub.Register(userID, session)

	hub.Publish(userID, EventMessageUnpinned, MessageUnpinnedPayload{MessageID: uuid.New()})

	events := session.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageUnpinned, events[0].Name)

	var payload MessageUnpinnedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.NotEqual(t, uuid.Nil, payload.MessageID)
}

func TestHubPublishOfflineIsSilent(t *testing.T) {
	hub := NewHub()

	// No session registered; nothing to assert beyond not panicking.
	hub.Publish(uuid.New(), EventNewMessage, map[string]string{"text": "hi"})
}

func TestHubRegisterReplacesExistingSession(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	first := &fakeSession{}
	second := &fakeSession{}

	hub.Register(userID, first)
	hub.Register(userID, second)

	assert.True(t, first.closed)
	assert.False(t, second.closed)

	hub.Publish(userID, EventMessageDeletedEveryone, MessageDeletedPayload{MessageID: uuid.New()})
	assert.Empty(t, first.events(t))
	assert.Len(t, second.events(t), 1)
}

func TestHubUnregisterIgnoresStaleSession(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	stale := &fakeSession{}
	current := &fakeSession{}

	hub.Register(userID, stale)
	hub.Register(userID, current)

	// The replaced connection tears down late; the live one must survive.
	hub.Unregister(userID, stale)

	s, ok := hub.SessionFor(userID)
	require.True(t, ok)
	assert.Same(t, current, s.(*fakeSession))

	hub.Unregister(userID, current)
	_, ok = hub.SessionFor(userID)
	assert.False(t, ok)
}

func TestHubPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	session := &fakeSession{rejectAll: true}
	hub.Register(userID, session)

	// A refusing session must not block or panic the hub.
	hub.Publish(userID, EventUnreadCountChanged, UnreadCountChangedPayload{SenderID: uuid.New()})
	assert.Empty(t, session.events(t))
}

func TestHubPublishIsolatesRecipients(t *testing.T) {
	hub := NewHub()
	alice := uuid.New()
	bob := uuid.New()
	aliceSession := &fakeSession{}
	bobSession := &fakeSession{}
	hub.Register(alice, aliceSession)
	hub.Register(bob, bobSession)

	hub.Publish(bob, EventMessagesRead, MessagesReadPayload{ReadBy: alice})

	assert.Empty(t, aliceSession.events(t))
	require.Len(t, bobSession.events(t), 1)
}

func TestHubStopClosesAllSessions(t *testing.T) {
	hub := NewHub()
	a := &fakeSession{}
	b := &fakeSession{}
	hub.Register(uuid.New(), a)
	hub.Register(uuid.New(), b)

	hub.Stop()

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
