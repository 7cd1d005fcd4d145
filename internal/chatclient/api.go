package chatclient

import (
	"context"

	"github.com/google/uuid"

	"whispr/internal/domain/message"
	"whispr/internal/domain/user"
)

// Partner mirrors the chat-partner wire shape: a counterpart plus the
// viewer's unread count for that thread.
type Partner struct {
	User        user.User `json:"user"`
	UnreadCount int64     `json:"unreadCount"`
}

// API is the request/response boundary to the message store. The
// engine treats its responses and the event stream as independently
// ordered and reconciles by record identity.
type API interface {
	Contacts(ctx context.Context) ([]user.User, error)
	ChatPartners(ctx context.Context) ([]Partner, error)
	Conversation(ctx context.Context, peer uuid.UUID) ([]message.Message, error)
	Pinned(ctx context.Context, peer uuid.UUID) ([]message.Message, error)
	SendMessage(ctx context.Context, peer uuid.UUID, text, image string) (message.Message, error)
	MarkRead(ctx context.Context, peer uuid.UUID) (int64, error)
	Pin(ctx context.Context, messageID uuid.UUID) (message.Message, error)
	Unpin(ctx context.Context, messageID uuid.UUID) (message.Message, error)
	DeleteForEveryone(ctx context.Context, messageID uuid.UUID) error
	DeleteForMe(ctx context.Context, messageID uuid.UUID) error
}
