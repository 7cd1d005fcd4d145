package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"whispr/internal/domain/message"
	whispr_errors "whispr/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// visibleTo mirrors message.Message.VisibleTo for SQL-side filtering.
// Keep the two in sync; the predicate test covers the Go side.
const visibleTo = "deleted_for_everyone = false AND (deleted_for IS NULL OR NOT deleted_for @> ?::jsonb)"

const betweenPair = "((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))"

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func viewerElem(viewer uuid.UUID) string {
	b, _ := json.Marshal([]uuid.UUID{viewer})
	return string(b)
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, whispr_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListBetween(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error) {
	var messages []message.Message
	err := r.db.WithContext(ctx).
		Where(betweenPair, viewer, peer, peer, viewer).
		Where(visibleTo, viewerElem(viewer)).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) ListPinnedBetween(ctx context.Context, viewer, peer uuid.UUID) ([]message.Message, error) {
	var messages []message.Message
	err := r.db.WithContext(ctx).
		Where(betweenPair, viewer, peer, peer, viewer).
		Where("is_pinned = true").
		Where(visibleTo, viewerElem(viewer)).
		Order("pinned_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) ListPartnerIDs(ctx context.Context, viewer uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?`,
		viewer, viewer, viewer).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, viewer, peer uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = false", peer, viewer).
		Where(visibleTo, viewerElem(viewer)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) MarkConversationRead(ctx context.Context, viewer, peer uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = false", peer, viewer).
		Updates(map[string]interface{}{
			"read":       true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) SetDeletedForEveryone(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_for_everyone": true,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return whispr_errors.ErrNotFound
	}
	return nil
}

// AddDeletedFor appends userID to deleted_for atomically. Concurrent
// appends by both participants commute; the containment guard makes a
// repeat append report ErrAlreadyDeleted instead of rewriting the set.
func (r *PostgresMessageRepository) AddDeletedFor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	elem := viewerElem(userID)
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Where("NOT COALESCE(deleted_for, '[]'::jsonb) @> ?::jsonb", elem).
		Updates(map[string]interface{}{
			"deleted_for": gorm.Expr("COALESCE(deleted_for, '[]'::jsonb) || ?::jsonb", elem),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	// The row exists (callers load it first); zero rows means the id
	// was already in the set.
	if res.RowsAffected == 0 {
		return whispr_errors.ErrAlreadyDeleted
	}
	return nil
}

func (r *PostgresMessageRepository) Pin(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_pinned":  true,
			"pinned_at":  at,
			"pinned_by":  by,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return whispr_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) Unpin(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_pinned":  false,
			"pinned_at":  nil,
			"pinned_by":  nil,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return whispr_errors.ErrNotFound
	}
	return nil
}
