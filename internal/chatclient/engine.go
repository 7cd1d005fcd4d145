package chatclient

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whispr/internal/delivery"
	"whispr/internal/domain/message"
	"whispr/internal/domain/user"
)

// Engine holds one device's view of the conversation state and merges
// three input streams: local optimistic actions, confirmed responses,
// and server events. Reconciliation is always by record identity,
// never by position or arrival order.
type Engine struct {
	api    API
	self   uuid.UUID
	logger *zap.Logger

	mu       sync.Mutex
	contacts []user.User
	partners []user.User
	unread   map[uuid.UUID]int64
	threads  map[uuid.UUID][]message.Message
	pinned   map[uuid.UUID][]message.Message
	active   uuid.UUID
}

func NewEngine(self uuid.UUID, api API) *Engine {
	return &Engine{
		api:     api,
		self:    self,
		logger:  zap.L().With(zap.String("component", "chatclient")),
		unread:  make(map[uuid.UUID]int64),
		threads: make(map[uuid.UUID][]message.Message),
		pinned:  make(map[uuid.UUID][]message.Message),
	}
}

// RefreshContacts replaces the cached contact list.
func (e *Engine) RefreshContacts(ctx context.Context) error {
	contacts, err := e.api.Contacts(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.contacts = contacts
	e.mu.Unlock()
	return nil
}

// RefreshPartners refetches the sidebar: partner list and authoritative
// unread counters. This is the recovery path after any event gap.
func (e *Engine) RefreshPartners(ctx context.Context) error {
	partners, err := e.api.ChatPartners(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.partners = e.partners[:0]
	e.unread = make(map[uuid.UUID]int64, len(partners))
	for _, p := range partners {
		e.partners = append(e.partners, p.User)
		e.unread[p.User.ID] = p.UnreadCount
	}
	e.mu.Unlock()
	return nil
}

// Resync refetches everything the event stream may have skipped:
// partner counters and, when a conversation is open, its contents.
func (e *Engine) Resync(ctx context.Context) error {
	if err := e.RefreshPartners(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if active == uuid.Nil {
		return nil
	}
	return e.fetchThread(ctx, active)
}

// Open makes peer the active conversation: fetches its messages and
// pins, zeroes the unread counter optimistically, and issues mark-read.
func (e *Engine) Open(ctx context.Context, peer uuid.UUID) error {
	if err := e.fetchThread(ctx, peer); err != nil {
		return err
	}

	e.mu.Lock()
	e.active = peer
	e.unread[peer] = 0
	e.mu.Unlock()

	if _, err := e.api.MarkRead(ctx, peer); err != nil {
		return err
	}
	return nil
}

// CloseConversation leaves the active conversation.
func (e *Engine) CloseConversation() {
	e.mu.Lock()
	e.active = uuid.Nil
	e.mu.Unlock()
}

// Composing reports typing activity in the active conversation, which
// doubles as a read acknowledgement.
func (e *Engine) Composing(ctx context.Context) error {
	e.mu.Lock()
	peer := e.active
	if peer != uuid.Nil {
		e.unread[peer] = 0
	}
	e.mu.Unlock()
	if peer == uuid.Nil {
		return nil
	}
	_, err := e.api.MarkRead(ctx, peer)
	return err
}

// Send shows the message immediately as a pending entry under a local
// id, then supersedes it with the server record. The local id is never
// merged with the server id; the pending entry is dropped and the
// confirmed record inserted by identity. On failure the pending entry
// is removed and the error surfaced; resend is explicit.
func (e *Engine) Send(ctx context.Context, peer uuid.UUID, text, image string) (message.Message, error) {
	local := message.Message{
		ID:         uuid.New(),
		SenderID:   e.self,
		ReceiverID: peer,
		Text:       text,
		Image:      image,
		CreatedAt:  time.Now(),
		Pending:    true,
	}
	e.mu.Lock()
	e.threads[peer] = append(e.threads[peer], local)
	e.mu.Unlock()

	confirmed, err := e.api.SendMessage(ctx, peer, text, image)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeMessage(peer, local.ID)
	if err != nil {
		return message.Message{}, err
	}
	e.insertMessage(peer, confirmed)
	return confirmed, nil
}

// PinMessage is round-trip confirmed, never optimistic: the pinned
// list is small and order-sensitive, so the server record wins.
func (e *Engine) PinMessage(ctx context.Context, messageID uuid.UUID) error {
	m, err := e.api.Pin(ctx, messageID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.applyPinned(m)
	e.mu.Unlock()
	return nil
}

func (e *Engine) UnpinMessage(ctx context.Context, messageID uuid.UUID) error {
	m, err := e.api.Unpin(ctx, messageID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.applyUnpinned(m.ID)
	e.mu.Unlock()
	return nil
}

// DeleteForEveryone removes the message locally once the server
// confirms; peers learn through their own event.
func (e *Engine) DeleteForEveryone(ctx context.Context, messageID uuid.UUID) error {
	if err := e.api.DeleteForEveryone(ctx, messageID); err != nil {
		return err
	}
	e.mu.Lock()
	e.removeEverywhere(messageID)
	e.mu.Unlock()
	return nil
}

// DeleteForMe only ever affects this device's view; nothing is
// broadcast and the peer's state is untouched.
func (e *Engine) DeleteForMe(ctx context.Context, messageID uuid.UUID) error {
	if err := e.api.DeleteForMe(ctx, messageID); err != nil {
		return err
	}
	e.mu.Lock()
	e.removeEverywhere(messageID)
	e.mu.Unlock()
	return nil
}

// Apply folds one server event into local state. Events are lossy
// notifications; where the payload is not authoritative the engine
// relies on refetch, never on event replay.
func (e *Engine) Apply(evt delivery.Event) error {
	switch evt.Name {
	case delivery.EventNewMessage:
		var m message.Message
		if err := json.Unmarshal(evt.Payload, &m); err != nil {
			return err
		}
		return e.applyNewMessage(m)

	case delivery.EventUnreadCountChanged:
		var p delivery.UnreadCountChangedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		e.mu.Lock()
		// Suppressed for the open conversation: the message went
		// straight into the visible list instead.
		if p.SenderID != e.active {
			e.unread[p.SenderID]++
		}
		e.mu.Unlock()
		return nil

	case delivery.EventMessagesRead:
		var p delivery.MessagesReadPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		e.mu.Lock()
		thread := e.threads[p.ReadBy]
		for i := range thread {
			if thread[i].SenderID == e.self && !thread[i].Read {
				thread[i].Read = true
				thread[i].UpdatedAt = p.ReadAt
			}
		}
		e.mu.Unlock()
		return nil

	case delivery.EventMessagePinned:
		var m message.Message
		if err := json.Unmarshal(evt.Payload, &m); err != nil {
			return err
		}
		e.mu.Lock()
		e.applyPinned(m)
		e.mu.Unlock()
		return nil

	case delivery.EventMessageUnpinned:
		var p delivery.MessageUnpinnedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		e.mu.Lock()
		e.applyUnpinned(p.MessageID)
		e.mu.Unlock()
		return nil

	case delivery.EventMessageDeletedEveryone:
		var p delivery.MessageDeletedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return err
		}
		e.mu.Lock()
		e.removeEverywhere(p.MessageID)
		e.mu.Unlock()
		return nil
	}

	e.logger.Warn("unknown event ignored", zap.String("event", string(evt.Name)))
	return nil
}

func (e *Engine) applyNewMessage(m message.Message) error {
	e.mu.Lock()
	peer := m.PeerOf(e.self)
	activeNow := peer == e.active
	if activeNow {
		e.insertMessage(peer, m)
	} else if _, cached := e.threads[peer]; cached {
		e.insertMessage(peer, m)
	}
	e.mu.Unlock()

	if activeNow {
		// The user is looking at it: acknowledge immediately.
		if _, err := e.api.MarkRead(context.Background(), peer); err != nil {
			e.logger.Warn("mark-read after incoming message failed", zap.Error(err))
		}
	}
	return nil
}

// Snapshot accessors. All return copies.

func (e *Engine) Contacts() []user.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]user.User, len(e.contacts))
	copy(out, e.contacts)
	return out
}

func (e *Engine) Partners() []Partner {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Partner, 0, len(e.partners))
	for _, u := range e.partners {
		out = append(out, Partner{User: u, UnreadCount: e.unread[u.ID]})
	}
	return out
}

func (e *Engine) Unread(peer uuid.UUID) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unread[peer]
}

func (e *Engine) Messages(peer uuid.UUID) []message.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]message.Message, len(e.threads[peer]))
	copy(out, e.threads[peer])
	return out
}

func (e *Engine) PinnedMessages(peer uuid.UUID) []message.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]message.Message, len(e.pinned[peer]))
	copy(out, e.pinned[peer])
	return out
}

func (e *Engine) ActivePeer() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) fetchThread(ctx context.Context, peer uuid.UUID) error {
	msgs, err := e.api.Conversation(ctx, peer)
	if err != nil {
		return err
	}
	pins, err := e.api.Pinned(ctx, peer)
	if err != nil {
		return err
	}

	e.mu.Lock()
	// The authoritative list wins, but in-flight optimistic entries
	// survive the rebuild.
	var pending []message.Message
	for _, m := range e.threads[peer] {
		if m.Pending {
			pending = append(pending, m)
		}
	}
	e.threads[peer] = append(msgs, pending...)
	e.pinned[peer] = pins
	e.mu.Unlock()
	return nil
}

// The helpers below mutate state directly; callers hold e.mu.

// insertMessage adds or replaces by id and keeps creation order.
func (e *Engine) insertMessage(peer uuid.UUID, m message.Message) {
	thread := e.threads[peer]
	for i := range thread {
		if thread[i].ID == m.ID {
			thread[i] = m
			return
		}
	}
	thread = append(thread, m)
	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].CreatedAt.Before(thread[j].CreatedAt)
	})
	e.threads[peer] = thread
}

func (e *Engine) removeMessage(peer uuid.UUID, id uuid.UUID) {
	thread := e.threads[peer]
	for i := range thread {
		if thread[i].ID == id {
			e.threads[peer] = append(thread[:i], thread[i+1:]...)
			return
		}
	}
}

func (e *Engine) removePinned(peer uuid.UUID, id uuid.UUID) {
	pins := e.pinned[peer]
	for i := range pins {
		if pins[i].ID == id {
			e.pinned[peer] = append(pins[:i], pins[i+1:]...)
			return
		}
	}
}

// applyPinned takes the authoritative record from a pin response or
// event: newest-pinned-first, deduplicated by id.
func (e *Engine) applyPinned(m message.Message) {
	peer := m.PeerOf(e.self)
	e.removePinned(peer, m.ID)
	e.pinned[peer] = append([]message.Message{m}, e.pinned[peer]...)
	// Never materialize a thread that was not fetched; a partial
	// thread would absorb later events as if it were complete.
	if _, cached := e.threads[peer]; cached {
		e.insertMessage(peer, m)
	}
}

func (e *Engine) applyUnpinned(id uuid.UUID) {
	for peer := range e.pinned {
		e.removePinned(peer, id)
	}
	for _, thread := range e.threads {
		for i := range thread {
			if thread[i].ID == id {
				thread[i].IsPinned = false
				thread[i].PinnedAt = nil
				thread[i].PinnedBy = nil
			}
		}
	}
}

func (e *Engine) removeEverywhere(id uuid.UUID) {
	for peer := range e.threads {
		e.removeMessage(peer, id)
	}
	for peer := range e.pinned {
		e.removePinned(peer, id)
	}
}
