package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whispr/internal/delivery"
	"whispr/internal/domain/message"
	"whispr/internal/domain/user"
	whispr_errors "whispr/pkg/errors"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func newFakeUserRepo(users ...user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]user.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return whispr_errors.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, whispr_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, whispr_errors.ErrNotFound
}

func (r *fakeUserRepo) ListExcept(ctx context.Context, userID uuid.UUID) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []user.User
	for _, u := range r.users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeMessageRepo mirrors the postgres repository's filters in memory.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []message.Message
	clock    time.Time

	// onGetByID runs after the read completes, outside the lock.
	onGetByID func()
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{clock: time.Now()}
}

func (r *fakeMessageRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.Lock()
	var found *message.Message
	for i := range r.messages {
		if r.messages[i].ID == id {
			m := r.messages[i]
			found = &m
			break
		}
	}
	r.mu.Unlock()

	if r.onGetByID != nil {
		r.onGetByID()
	}
	if found == nil {
		return message.Message{}, whispr_errors.ErrNotFound
	}
	return *found, nil
}

func betweenPair(m message.Message, a, b uuid.UUID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func (r *fakeMessageRepo) ListBetween(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Message
	for _, m := range r.messages {
		if betweenPair(m, viewer, peer) && m.VisibleTo(viewer) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) ListPinnedBetween(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Message
	for _, m := range r.messages {
		if betweenPair(m, viewer, peer) && m.IsPinned && m.VisibleTo(viewer) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PinnedAt.After(*out[j].PinnedAt) })
	return out, nil
}

func (r *fakeMessageRepo) ListPartnerIDs(ctx context.Context, viewer uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, m := range r.messages {
		if !m.Involves(viewer) {
			continue
		}
		peer := m.PeerOf(viewer)
		if !seen[peer] {
			seen[peer] = true
			out = append(out, peer)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountUnread(ctx context.Context, viewer, peer uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.SenderID == peer && m.ReceiverID == viewer && !m.Read && m.VisibleTo(viewer) {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) MarkConversationRead(ctx context.Context, viewer, peer uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.SenderID == peer && m.ReceiverID == viewer && !m.Read {
			m.Read = true
			m.UpdatedAt = r.tick()
			affected++
		}
	}
	return affected, nil
}

func (r *fakeMessageRepo) SetDeletedForEveryone(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].DeletedForEveryone = true
			r.messages[i].UpdatedAt = r.tick()
			return nil
		}
	}
	return whispr_errors.ErrNotFound
}

func (r *fakeMessageRepo) AddDeletedFor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			if r.messages[i].DeletedFor.Contains(userID) {
				return whispr_errors.ErrAlreadyDeleted
			}
			r.messages[i].DeletedFor = r.messages[i].DeletedFor.Add(userID)
			r.messages[i].UpdatedAt = r.tick()
			return nil
		}
	}
	return whispr_errors.ErrNotFound
}

func (r *fakeMessageRepo) Pin(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].IsPinned = true
			pinnedAt := at
			r.messages[i].PinnedAt = &pinnedAt
			pinnedBy := by
			r.messages[i].PinnedBy = &pinnedBy
			r.messages[i].UpdatedAt = r.tick()
			return nil
		}
	}
	return whispr_errors.ErrNotFound
}

func (r *fakeMessageRepo) Unpin(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].IsPinned = false
			r.messages[i].PinnedAt = nil
			r.messages[i].PinnedBy = nil
			r.messages[i].UpdatedAt = r.tick()
			return nil
		}
	}
	return whispr_errors.ErrNotFound
}

type publishedEvent struct {
	userID  uuid.UUID
	name    delivery.EventName
	payload interface{}
}

type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturePublisher) Publish(userID uuid.UUID, name delivery.EventName, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, name: name, payload: payload})
}

func (p *capturePublisher) named(name delivery.EventName) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type serviceFixture struct {
	svc       *MessageService
	repo      *fakeMessageRepo
	publisher *capturePublisher
	alice     uuid.UUID
	bob       uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	alice := user.User{ID: uuid.New(), Email: "alice@whispr.dev", FullName: "Alice"}
	bob := user.User{ID: uuid.New(), Email: "bob@whispr.dev", FullName: "Bob"}
	repo := newFakeMessageRepo()
	publisher := &capturePublisher{}
	svc := NewMessageService(repo, newFakeUserRepo(alice, bob), publisher, 0)
	return &serviceFixture{svc: svc, repo: repo, publisher: publisher, alice: alice.ID, bob: bob.ID}
}

func TestSendDeliversToReceiver(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, f.alice, m.SenderID)
	assert.Equal(t, f.bob, m.ReceiverID)
	assert.False(t, m.Read)

	// Receiver sees it in the thread and in the unread count.
	thread, err := f.svc.ListConversation(ctx, f.bob, f.alice)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "hi", thread[0].Text)

	partners, err := f.svc.ListChatPartners(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, f.alice, partners[0].User.ID)
	assert.Equal(t, int64(1), partners[0].UnreadCount)

	newMsg := f.publisher.named(delivery.EventNewMessage)
	require.Len(t, newMsg, 1)
	assert.Equal(t, f.bob, newMsg[0].userID)

	unread := f.publisher.named(delivery.EventUnreadCountChanged)
	require.Len(t, unread, 1)
	assert.Equal(t, f.bob, unread[0].userID)
	assert.Equal(t, delivery.UnreadCountChangedPayload{SenderID: f.alice}, unread[0].payload)
}

func TestSendRejectsEmptyPayload(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Send(context.Background(), f.alice, f.bob, "   ", "")
	assert.ErrorIs(t, err, whispr_errors.ErrValidation)
	assert.Empty(t, f.publisher.events)
}

func TestSendAllowsImageOnly(t *testing.T) {
	f := newServiceFixture(t)

	m, err := f.svc.Send(context.Background(), f.alice, f.bob, "", "https://cdn.whispr.dev/img.png")
	require.NoError(t, err)
	assert.Empty(t, m.Text)
	assert.NotEmpty(t, m.Image)
}

func TestSendRejectsOversizedText(t *testing.T) {
	f := newServiceFixture(t)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	_, err := f.svc.Send(context.Background(), f.alice, f.bob, string(long), "")
	assert.ErrorIs(t, err, whispr_errors.ErrValidation)
}

func TestSendRejectsSelfMessage(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Send(context.Background(), f.alice, f.alice, "note to self", "")
	assert.ErrorIs(t, err, whispr_errors.ErrSelfMessage)
}

func TestSendUnknownReceiver(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Send(context.Background(), f.alice, uuid.New(), "hello?", "")
	assert.ErrorIs(t, err, whispr_errors.ErrNotFound)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.alice, f.bob, "one", "")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.alice, f.bob, "two", "")
	require.NoError(t, err)
	f.publisher.reset()

	affected, err := f.svc.MarkRead(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// The sender hears about it exactly once.
	read := f.publisher.named(delivery.EventMessagesRead)
	require.Len(t, read, 1)
	assert.Equal(t, f.alice, read[0].userID)
	payload, ok := read[0].payload.(delivery.MessagesReadPayload)
	require.True(t, ok)
	assert.Equal(t, f.bob, payload.ReadBy)
	assert.False(t, payload.ReadAt.IsZero())

	// Counts collapse to zero and the second call is a silent no-op.
	partners, err := f.svc.ListChatPartners(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, int64(0), partners[0].UnreadCount)

	f.publisher.reset()
	affected, err = f.svc.MarkRead(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.Empty(t, f.publisher.named(delivery.EventMessagesRead))
}

func TestMarkReadLeavesOppositeDirectionUnread(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.alice, f.bob, "from alice", "")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.bob, f.alice, "from bob", "")
	require.NoError(t, err)

	_, err = f.svc.MarkRead(ctx, f.bob, f.alice)
	require.NoError(t, err)

	// Alice still has bob's message unread.
	partners, err := f.svc.ListChatPartners(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, int64(1), partners[0].UnreadCount)
}

func TestDeleteForEveryoneIsTerminal(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "oops", "")
	require.NoError(t, err)
	f.publisher.reset()

	require.NoError(t, f.svc.DeleteForEveryone(ctx, f.alice, m.ID))

	for _, viewer := range []uuid.UUID{f.alice, f.bob} {
		thread, err := f.svc.ListConversation(ctx, viewer, m.PeerOf(viewer))
		require.NoError(t, err)
		assert.Empty(t, thread)
	}

	// Both parties are notified.
	deleted := f.publisher.named(delivery.EventMessageDeletedEveryone)
	require.Len(t, deleted, 2)
	assert.ElementsMatch(t,
		[]uuid.UUID{f.alice, f.bob},
		[]uuid.UUID{deleted[0].userID, deleted[1].userID})

	// Repeat is tolerated; the flag never comes back.
	require.NoError(t, f.svc.DeleteForEveryone(ctx, f.alice, m.ID))
	stored, err := f.repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.DeletedForEveryone)
}

func TestDeleteForEveryoneSenderOnly(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "mine", "")
	require.NoError(t, err)

	err = f.svc.DeleteForEveryone(ctx, f.bob, m.ID)
	assert.ErrorIs(t, err, whispr_errors.ErrForbidden)

	thread, err := f.svc.ListConversation(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.Len(t, thread, 1)
}

func TestDeleteForMeHidesFromActorOnly(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "keep on one side", "")
	require.NoError(t, err)
	f.publisher.reset()

	require.NoError(t, f.svc.DeleteForMe(ctx, f.bob, m.ID))

	bobThread, err := f.svc.ListConversation(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.Empty(t, bobThread)

	aliceThread, err := f.svc.ListConversation(ctx, f.alice, f.bob)
	require.NoError(t, err)
	assert.Len(t, aliceThread, 1)

	// Per-party deletion is local: nothing goes over the wire.
	assert.Empty(t, f.publisher.events)
}

func TestDeleteForMeTwiceConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "once", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteForMe(ctx, f.bob, m.ID))
	err = f.svc.DeleteForMe(ctx, f.bob, m.ID)
	assert.ErrorIs(t, err, whispr_errors.ErrAlreadyDeleted)
}

func TestDeleteForMeRequiresParticipant(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "private", "")
	require.NoError(t, err)

	err = f.svc.DeleteForMe(ctx, uuid.New(), m.ID)
	assert.ErrorIs(t, err, whispr_errors.ErrForbidden)
}

func TestDeleteForMeByBothHidesFromBoth(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "goodbye", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteForMe(ctx, f.alice, m.ID))
	require.NoError(t, f.svc.DeleteForMe(ctx, f.bob, m.ID))

	for _, viewer := range []uuid.UUID{f.alice, f.bob} {
		thread, err := f.svc.ListConversation(ctx, viewer, m.PeerOf(viewer))
		require.NoError(t, err)
		assert.Empty(t, thread)
	}
}

func TestDeleteForMeConcurrentActorsBothRecorded(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "gone for both", "")
	require.NoError(t, err)

	// Gate both deletes on the same stale read so each actor's append
	// starts from a set missing the other.
	var gate sync.WaitGroup
	gate.Add(2)
	f.repo.onGetByID = func() {
		gate.Done()
		gate.Wait()
	}

	errs := make(chan error, 2)
	for _, actor := range []uuid.UUID{f.alice, f.bob} {
		go func(actor uuid.UUID) {
			errs <- f.svc.DeleteForMe(ctx, actor, m.ID)
		}(actor)
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	f.repo.onGetByID = nil
	stored, err := f.repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.DeletedFor.Contains(f.alice))
	assert.True(t, stored.DeletedFor.Contains(f.bob))
}

func TestPinUnpinRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "pin me", "")
	require.NoError(t, err)
	f.publisher.reset()

	// Either participant may pin; here the receiver does.
	pinned, err := f.svc.Pin(ctx, f.bob, m.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	require.NotNil(t, pinned.PinnedAt)
	require.NotNil(t, pinned.PinnedBy)
	assert.Equal(t, f.bob, *pinned.PinnedBy)

	pinnedEvents := f.publisher.named(delivery.EventMessagePinned)
	require.Len(t, pinnedEvents, 2)

	list, err := f.svc.ListPinned(ctx, f.alice, f.bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, m.ID, list[0].ID)

	// Unpin by the other participant restores the unpinned state.
	unpinned, err := f.svc.Unpin(ctx, f.alice, m.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.IsPinned)
	assert.Nil(t, unpinned.PinnedAt)
	assert.Nil(t, unpinned.PinnedBy)

	unpinnedEvents := f.publisher.named(delivery.EventMessageUnpinned)
	require.Len(t, unpinnedEvents, 2)

	list, err = f.svc.ListPinned(ctx, f.alice, f.bob)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPinAlreadyPinnedKeepsOriginalTimestamp(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "sticky", "")
	require.NoError(t, err)

	first, err := f.svc.Pin(ctx, f.alice, m.ID)
	require.NoError(t, err)
	f.publisher.reset()

	second, err := f.svc.Pin(ctx, f.bob, m.ID)
	require.NoError(t, err)
	assert.True(t, second.IsPinned)
	assert.Equal(t, first.PinnedAt.Unix(), second.PinnedAt.Unix())
	assert.Equal(t, *first.PinnedBy, *second.PinnedBy)

	// The no-op does not republish.
	assert.Empty(t, f.publisher.named(delivery.EventMessagePinned))
}

func TestPinRequiresParticipant(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "ours", "")
	require.NoError(t, err)

	_, err = f.svc.Pin(ctx, uuid.New(), m.ID)
	assert.ErrorIs(t, err, whispr_errors.ErrForbidden)
}

func TestPinDoesNotTouchUnreadCounts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "still unread", "")
	require.NoError(t, err)

	_, err = f.svc.Pin(ctx, f.alice, m.ID)
	require.NoError(t, err)

	partners, err := f.svc.ListChatPartners(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, int64(1), partners[0].UnreadCount)

	stored, err := f.repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, stored.Read)
}

func TestUnreadCountIgnoresHiddenMessages(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1, err := f.svc.Send(ctx, f.alice, f.bob, "one", "")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.alice, f.bob, "two", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteForEveryone(ctx, f.alice, m1.ID))

	partners, err := f.svc.ListChatPartners(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, int64(1), partners[0].UnreadCount)
}

func TestChatPartnersSurviveDeletedThreads(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.alice, f.bob, "only one", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteForMe(ctx, f.bob, m.ID))

	// The thread is empty for bob yet the partner entry remains.
	thread, err := f.svc.ListConversation(ctx, f.bob, f.alice)
	require.NoError(t, err)
	assert.Empty(t, thread)

	partners, err := f.svc.ListChatPartners(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, f.alice, partners[0].User.ID)
	assert.Equal(t, int64(0), partners[0].UnreadCount)
}

func TestConversationOrderingAfterMixedOperations(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1, err := f.svc.Send(ctx, f.alice, f.bob, "first", "")
	require.NoError(t, err)
	m2, err := f.svc.Send(ctx, f.bob, f.alice, "second", "")
	require.NoError(t, err)
	m3, err := f.svc.Send(ctx, f.alice, f.bob, "third", "")
	require.NoError(t, err)

	// Reading and pinning touch updated_at but never reorder the thread.
	_, err = f.svc.MarkRead(ctx, f.bob, f.alice)
	require.NoError(t, err)
	_, err = f.svc.Pin(ctx, f.alice, m1.ID)
	require.NoError(t, err)

	thread, err := f.svc.ListConversation(ctx, f.alice, f.bob)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, []uuid.UUID{m1.ID, m2.ID, m3.ID},
		[]uuid.UUID{thread[0].ID, thread[1].ID, thread[2].ID})
}

func TestPinnedListNewestFirst(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1, err := f.svc.Send(ctx, f.alice, f.bob, "older pin", "")
	require.NoError(t, err)
	m2, err := f.svc.Send(ctx, f.alice, f.bob, "newer pin", "")
	require.NoError(t, err)

	_, err = f.svc.Pin(ctx, f.alice, m1.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.Pin(ctx, f.bob, m2.ID)
	require.NoError(t, err)

	list, err := f.svc.ListPinned(ctx, f.bob, f.alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, m2.ID, list[0].ID)
	assert.Equal(t, m1.ID, list[1].ID)
}
