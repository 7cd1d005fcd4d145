package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"whispr/internal/domain/user"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	Users []SeedUser
}

type SeedUser struct {
	Email    string
	FullName string
	Password string
}

// DefaultSeedConfig returns a small set of development accounts.
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		Users: []SeedUser{
			{Email: "alice@whispr.dev", FullName: "Alice Barton", Password: "Alice@123!"},
			{Email: "bob@whispr.dev", FullName: "Bob Keane", Password: "Bob@123!"},
			{Email: "carol@whispr.dev", FullName: "Carol Diaz", Password: "Carol@123!"},
		},
	}
}

// Seed inserts development users, skipping any email that already exists.
func Seed(cfg *SeedConfig) ([]*user.User, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	ctx := context.Background()

	var created []*user.User
	for _, su := range cfg.Users {
		var existing user.User
		err := DB.WithContext(ctx).Where("email = ?", su.Email).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", su.Email, err)
		}
		u := &user.User{
			ID:           uuid.New(),
			Email:        su.Email,
			FullName:     su.FullName,
			PasswordHash: string(hash),
		}
		if err := DB.WithContext(ctx).Create(u).Error; err != nil {
			return nil, err
		}
		created = append(created, u)
	}

	log.Printf("Seeding complete: %d users created", len(created))
	return created, nil
}
