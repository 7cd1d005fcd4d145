package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"whispr/config"
	"whispr/internal/domain/user"
	"whispr/internal/mail"
	"whispr/internal/repository"
	whispr_errors "whispr/pkg/errors"
	"whispr/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo  repository.UserRepository
	mailer    mail.Sender
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, mailer mail.Sender, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		mailer:    mailer,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type SignupInput struct {
	Email    string
	FullName string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        user.User `json:"user"`
}

type AccessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.FullName == "" || len(input.Password) < 8 {
		return AuthResponse{}, whispr_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return AuthResponse{}, err
	}

	// Welcome mail is decoupled from the signup path; a failure is the
	// mailer's problem, not the caller's.
	go func(to, name string) {
		if s.mailer == nil {
			return
		}
		if err := s.mailer.SendWelcome(context.Background(), to, name); err != nil {
			if l := logger.GetGlobalLogger(); l != nil {
				l.Warnf("welcome mail to %s failed: %s", to, err)
			}
		}
	}(u.Email, u.FullName)

	return s.issueToken(*u)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, whispr_errors.ErrNotFound) {
			return AuthResponse{}, whispr_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResponse{}, whispr_errors.ErrUnauthorized
	}
	return s.issueToken(u)
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) issueToken(u user.User) (AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := AccessClaims{
		UserID: u.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User:        u,
	}, nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, whispr_errors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, whispr_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, whispr_errors.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return AccessClaims{}, whispr_errors.ErrUnauthorized
	}
	return *claims, nil
}
