package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"
)

// PresenceStore tracks which users hold a live connection. Entries
// carry a TTL so a crashed process cannot leave users online forever.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func (p *PresenceStore) SetOnline(ctx context.Context, userID uuid.UUID) error {
	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+userID.String(), time.Now().Unix(), p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) SetOffline(ctx context.Context, userID uuid.UUID) error {
	pipe := p.client.Pipeline()
	pipe.Del(ctx, presenceKeyPrefix+userID.String())
	pipe.SRem(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

// IsOnline checks the TTL'd key, not the set, so stale set members
// read as offline.
func (p *PresenceStore) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := p.client.Exists(ctx, presenceKeyPrefix+userID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Refresh extends the online TTL for a still-connected user.
func (p *PresenceStore) Refresh(ctx context.Context, userID uuid.UUID) error {
	return p.client.Expire(ctx, presenceKeyPrefix+userID.String(), p.ttl).Err()
}
