package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"station-rental-backend/internal/domain"
	"station-rental-backend/internal/repository"
	"station-rental-backend/internal/security"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", 60)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	assert.NoError(t, err)
	user := &domain.User{ID: 42, Email: "c@example.com", Name: "Chi", Role: domain.UserRoleCustomer, PasswordHash: string(hash)}

	t.Run("valid credentials return a token", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", mock.Anything, "c@example.com").Return(user, nil)
		svc := NewAuthService(users, tokens)

		token, got, err := svc.Login(ctx, "c@example.com", "s3cret-pass")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, int32(42), got.ID)

		claims, err := tokens.ValidateToken(token)
		assert.NoError(t, err)
		assert.Equal(t, int32(42), claims.UserID)
		assert.Equal(t, "customer", claims.Role)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", mock.Anything, "c@example.com").Return(user, nil)
		svc := NewAuthService(users, tokens)

		_, _, err := svc.Login(ctx, "c@example.com", "wrong")
		assert.Equal(t, KindUnauthorized, KindOf(err))
	})

	t.Run("unknown email gets the same error as a bad password", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)
		svc := NewAuthService(users, tokens)

		_, _, err := svc.Login(ctx, "nobody@example.com", "whatever")
		assert.Equal(t, KindUnauthorized, KindOf(err))
	})

	t.Run("empty credentials are rejected", func(t *testing.T) {
		svc := NewAuthService(new(MockUserRepo), tokens)
		_, _, err := svc.Login(ctx, "", "")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}
