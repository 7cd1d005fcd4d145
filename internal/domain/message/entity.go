package message

import (
	"time"

	"github.com/google/uuid"
)

// UUIDSet is a jsonb-backed set of user ids. Membership is append-only.
type UUIDSet []uuid.UUID

func (s UUIDSet) Contains(id uuid.UUID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns the set with id appended, unchanged if already present.
func (s UUIDSet) Add(id uuid.UUID) UUIDSet {
	if s.Contains(id) {
		return s
	}
	return append(s, id)
}

// Message represents the messages table
type Message struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID           uuid.UUID  `gorm:"type:uuid;index:idx_messages_pair,priority:1" json:"senderId"`
	ReceiverID         uuid.UUID  `gorm:"type:uuid;index:idx_messages_pair,priority:2" json:"receiverId"`
	Text               string     `json:"text,omitempty"`
	Image              string     `json:"image,omitempty"`
	Read               bool       `gorm:"default:false" json:"read"`
	DeletedForEveryone bool       `gorm:"default:false" json:"deletedForEveryone"`
	DeletedFor         UUIDSet    `gorm:"type:jsonb;serializer:json" json:"deletedFor,omitempty"`
	IsPinned           bool       `gorm:"default:false" json:"isPinned"`
	PinnedAt           *time.Time `json:"pinnedAt,omitempty"`
	PinnedBy           *uuid.UUID `gorm:"type:uuid" json:"pinnedBy,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	// Pending marks a client-local optimistic record awaiting server
	// confirmation. Never persisted, never sent by the server.
	Pending bool `gorm:"-" json:"pending,omitempty"`
}

// VisibleTo is the one visibility predicate for reads. Both deletion
// mechanisms apply together, regardless of which party is asking.
func (m *Message) VisibleTo(viewer uuid.UUID) bool {
	return !m.DeletedForEveryone && !m.DeletedFor.Contains(viewer)
}

// Involves reports whether userID is a party to the message.
func (m *Message) Involves(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// PeerOf returns the other participant relative to userID.
func (m *Message) PeerOf(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

func (Message) TableName() string {
	return "messages"
}
