package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"whispr/internal/domain/message"
	"whispr/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ListExcept(ctx context.Context, userID uuid.UUID) ([]user.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)

	// ListBetween returns the viewer's visible slice of the conversation,
	// creation order ascending.
	ListBetween(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error)
	// ListPinnedBetween returns visible pinned messages, newest-pinned-first.
	ListPinnedBetween(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error)
	// ListPartnerIDs returns every distinct counterpart regardless of
	// deletion state, so threads never vanish from navigation.
	ListPartnerIDs(ctx context.Context, viewer uuid.UUID) ([]uuid.UUID, error)
	CountUnread(ctx context.Context, viewer, peer uuid.UUID) (int64, error)

	MarkConversationRead(ctx context.Context, viewer, peer uuid.UUID) (int64, error)
	SetDeletedForEveryone(ctx context.Context, id uuid.UUID) error
	// AddDeletedFor appends userID to the message's deleted_for set
	// atomically; concurrent appends must commute and a repeat append
	// reports ErrAlreadyDeleted.
	AddDeletedFor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	Pin(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error
	Unpin(ctx context.Context, id uuid.UUID) error
}
