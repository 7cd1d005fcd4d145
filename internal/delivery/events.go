package delivery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventName identifies a server-to-client notification. Events are
// at-most-once and lossy; the query surface stays the source of truth.
type EventName string

const (
	EventNewMessage             EventName = "new-message"
	EventMessageDeletedEveryone EventName = "message-deleted-everyone"
	EventMessagesRead           EventName = "messages-read"
	EventMessagePinned          EventName = "message-pinned"
	EventMessageUnpinned        EventName = "message-unpinned"
	EventUnreadCountChanged     EventName = "unread-count-changed"
)

type Event struct {
	Name    EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(name EventName, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: data}, nil
}

// MessagesReadPayload tells the original sender which peer read and when.
type MessagesReadPayload struct {
	ReadBy uuid.UUID `json:"readBy"`
	ReadAt time.Time `json:"readAt"`
}

type MessageDeletedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
}

type MessageUnpinnedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
}

type UnreadCountChangedPayload struct {
	SenderID uuid.UUID `json:"senderId"`
}
