package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/repository"
	"station-rental-backend/internal/security"
)

type authService struct {
	users  repository.UserRepository
	tokens security.TokenManager
	log    *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		log:    logger.WithService("auth"),
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, ErrValidation("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same error as a bad password so probes cannot tell
			// registered emails apart.
			return "", nil, ErrUnauthorized("invalid email or password")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrUnauthorized("invalid email or password")
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return "", nil, err
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}
