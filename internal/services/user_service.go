package services

import (
	"context"

	"whispr/internal/domain/user"
	"whispr/internal/repository"
	"whispr/pkg/logger"

	"github.com/google/uuid"
)

// PresenceStore reports and records which users hold a live connection.
// Online marks carry a TTL, so a held connection must Refresh them or
// the user reads as offline while still connected.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	Refresh(ctx context.Context, userID uuid.UUID) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

type UserService struct {
	userRepo repository.UserRepository
	presence PresenceStore
}

func NewUserService(userRepo repository.UserRepository, presence PresenceStore) *UserService {
	return &UserService{userRepo: userRepo, presence: presence}
}

// Contacts returns everyone except the viewer, decorated with presence.
func (s *UserService) Contacts(ctx context.Context, viewer uuid.UUID) ([]user.User, error) {
	users, err := s.userRepo.ListExcept(ctx, viewer)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].IsOnline = s.isOnline(ctx, users[i].ID)
	}
	return users, nil
}

// RefreshPresence extends the online mark's TTL; the websocket layer
// calls it on every sign of connection liveness.
func (s *UserService) RefreshPresence(ctx context.Context, userID uuid.UUID) {
	if s.presence == nil {
		return
	}
	if err := s.presence.Refresh(ctx, userID); err != nil {
		if l := logger.GetGlobalLogger(); l != nil {
			l.Warnf("presence refresh for %s failed: %s", userID, err)
		}
	}
}

func (s *UserService) SetOnline(ctx context.Context, userID uuid.UUID, online bool) {
	if s.presence == nil {
		return
	}
	var err error
	if online {
		err = s.presence.SetOnline(ctx, userID)
	} else {
		err = s.presence.SetOffline(ctx, userID)
	}
	if err != nil {
		if l := logger.GetGlobalLogger(); l != nil {
			l.Warnf("presence update for %s failed: %s", userID, err)
		}
	}
}

func (s *UserService) isOnline(ctx context.Context, userID uuid.UUID) bool {
	if s.presence == nil {
		return false
	}
	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		return false
	}
	return online
}
