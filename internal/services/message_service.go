package services

import (
	"context"
	"strings"
	"time"

	"whispr/internal/delivery"
	"whispr/internal/domain/message"
	"whispr/internal/domain/user"
	"whispr/internal/repository"
	whispr_errors "whispr/pkg/errors"

	"github.com/google/uuid"
)

// Publisher is the fan-out side of the delivery coordinator. Delivery
// is at-most-once; the store remains the source of truth.
type Publisher interface {
	Publish(userID uuid.UUID, name delivery.EventName, payload interface{})
}

// ChatPartner is a viewer's sidebar entry: a counterpart plus the count
// of that counterpart's unread messages to the viewer.
type ChatPartner struct {
	User        user.User `json:"user"`
	UnreadCount int64     `json:"unreadCount"`
}

// MessageService is the authoritative message store: persistence plus
// the visibility, read and pin semantics layered on it.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	publisher   Publisher
	textMaxLen  int
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, publisher Publisher, textMaxLen int) *MessageService {
	if textMaxLen <= 0 {
		textMaxLen = 4096
	}
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		textMaxLen:  textMaxLen,
	}
}

// Send persists a new message and notifies the receiver.
func (s *MessageService) Send(ctx context.Context, sender, receiver uuid.UUID, text, image string) (message.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return message.Message{}, whispr_errors.ErrValidation
	}
	if len(text) > s.textMaxLen {
		return message.Message{}, whispr_errors.ErrValidation
	}
	if sender == receiver {
		return message.Message{}, whispr_errors.ErrSelfMessage
	}
	if _, err := s.userRepo.GetByID(ctx, receiver); err != nil {
		return message.Message{}, err
	}

	m := message.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		Image:      image,
	}
	if err := s.messageRepo.Create(ctx, &m); err != nil {
		return message.Message{}, err
	}

	s.publish(receiver, delivery.EventNewMessage, m)
	s.publish(receiver, delivery.EventUnreadCountChanged, delivery.UnreadCountChangedPayload{SenderID: sender})
	return m, nil
}

// ListConversation returns the viewer's visible slice of the thread
// with peer, creation order ascending.
func (s *MessageService) ListConversation(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error) {
	return s.messageRepo.ListBetween(ctx, viewer, peer)
}

// ListChatPartners returns every counterpart the viewer has a thread
// with, regardless of deletion state, each with an unread count.
func (s *MessageService) ListChatPartners(ctx context.Context, viewer uuid.UUID) ([]ChatPartner, error) {
	ids, err := s.messageRepo.ListPartnerIDs(ctx, viewer)
	if err != nil {
		return nil, err
	}

	partners := make([]ChatPartner, 0, len(ids))
	for _, id := range ids {
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			// A thread may outlive its account; skip rather than fail
			// the whole sidebar.
			continue
		}
		count, err := s.messageRepo.CountUnread(ctx, viewer, id)
		if err != nil {
			return nil, err
		}
		partners = append(partners, ChatPartner{User: u, UnreadCount: count})
	}
	return partners, nil
}

// MarkRead flips every unread peer-to-viewer message to read and
// reports how many were affected. Idempotent; the opposite direction is
// never touched.
func (s *MessageService) MarkRead(ctx context.Context, viewer, peer uuid.UUID) (int64, error) {
	affected, err := s.messageRepo.MarkConversationRead(ctx, viewer, peer)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.publish(peer, delivery.EventMessagesRead, delivery.MessagesReadPayload{
			ReadBy: viewer,
			ReadAt: time.Now(),
		})
	}
	return affected, nil
}

// DeleteForEveryone sets the terminal deletion flag. Sender only.
func (s *MessageService) DeleteForEveryone(ctx context.Context, actor, messageID uuid.UUID) error {
	m, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if actor != m.SenderID {
		return whispr_errors.ErrForbidden
	}
	if !m.DeletedForEveryone {
		if err := s.messageRepo.SetDeletedForEveryone(ctx, messageID); err != nil {
			return err
		}
	}

	// Either party may have the thread open.
	payload := delivery.MessageDeletedPayload{MessageID: messageID}
	s.publish(m.SenderID, delivery.EventMessageDeletedEveryone, payload)
	s.publish(m.ReceiverID, delivery.EventMessageDeletedEveryone, payload)
	return nil
}

// DeleteForMe hides the message from the actor only. Never broadcast:
// the peer's view is unaffected by construction.
func (s *MessageService) DeleteForMe(ctx context.Context, actor, messageID uuid.UUID) error {
	m, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !m.Involves(actor) {
		return whispr_errors.ErrForbidden
	}
	// The append is atomic in the repository, so a concurrent delete by
	// the other participant is never overwritten by this one.
	return s.messageRepo.AddDeletedFor(ctx, messageID, actor)
}

// Pin marks the message pinned by actor. Either participant may pin.
// Pinning an already-pinned message is a no-op; the original pinnedAt
// stands.
func (s *MessageService) Pin(ctx context.Context, actor, messageID uuid.UUID) (message.Message, error) {
	m, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if !m.Involves(actor) {
		return message.Message{}, whispr_errors.ErrForbidden
	}
	if m.IsPinned {
		return m, nil
	}

	now := time.Now()
	if err := s.messageRepo.Pin(ctx, messageID, actor, now); err != nil {
		return message.Message{}, err
	}
	m.IsPinned = true
	m.PinnedAt = &now
	m.PinnedBy = &actor
	m.UpdatedAt = now

	// The payload is authoritative for pin state: clients apply it
	// without a refetch.
	s.publish(m.SenderID, delivery.EventMessagePinned, m)
	s.publish(m.ReceiverID, delivery.EventMessagePinned, m)
	return m, nil
}

// Unpin clears the pin fields. No-op when not pinned.
func (s *MessageService) Unpin(ctx context.Context, actor, messageID uuid.UUID) (message.Message, error) {
	m, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if !m.Involves(actor) {
		return message.Message{}, whispr_errors.ErrForbidden
	}
	if !m.IsPinned {
		return m, nil
	}

	if err := s.messageRepo.Unpin(ctx, messageID); err != nil {
		return message.Message{}, err
	}
	m.IsPinned = false
	m.PinnedAt = nil
	m.PinnedBy = nil
	m.UpdatedAt = time.Now()

	payload := delivery.MessageUnpinnedPayload{MessageID: messageID}
	s.publish(m.SenderID, delivery.EventMessageUnpinned, payload)
	s.publish(m.ReceiverID, delivery.EventMessageUnpinned, payload)
	return m, nil
}

// ListPinned returns visible pinned messages, newest-pinned-first.
func (s *MessageService) ListPinned(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error) {
	return s.messageRepo.ListPinnedBetween(ctx, viewer, peer)
}

func (s *MessageService) publish(userID uuid.UUID, name delivery.EventName, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID, name, payload)
}
