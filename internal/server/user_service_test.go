package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService() (*UserService, *fakeUsers) {
	users := newFakeUsers()
	return NewUserService(users, &config.PasswordConfig{BcryptCost: bcrypt.MinCost, Pepper: "pepper"}), users
}

func TestConvertDBUserToTypesUser(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		now := time.Now()
		dbUser := &db.User{
			ID:           uuid.New(),
			Name:         "John Doe",
			Email:        "john@example.com",
			PasswordHash: "hashed-password",
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		typesUser := convertDBUserToTypesUser(dbUser)
		require.NotNil(t, typesUser)
		assert.Equal(t, dbUser.ID, typesUser.ID)
		assert.Equal(t, dbUser.Name, typesUser.Name)
		assert.Equal(t, dbUser.Email, typesUser.Email)
		assert.Equal(t, dbUser.CreatedAt, typesUser.CreatedAt)
		assert.Equal(t, dbUser.UpdatedAt, typesUser.UpdatedAt)
	})

	t.Run("nil user", func(t *testing.T) {
		assert.Nil(t, convertDBUserToTypesUser(nil))
	})
}

func TestUserService_Register(t *testing.T) {
	service, users := newTestUserService()
	ctx := context.Background()

	user, err := service.Register(ctx, &types.CreateUserRequest{Name: "  Jane  ", Email: " jane@example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.Name)
	assert.Equal(t, "jane@example.com", user.Email)

	stored := users.users[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "password123", stored.PasswordHash, "password is hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123pepper")))

	_, err = service.Register(ctx, &types.CreateUserRequest{Name: "Jane", Email: "jane@example.com", Password: "password123"})
	var exists *ErrEmailAlreadyExists
	assert.True(t, errors.As(err, &exists))
}

func TestUserService_Login(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()
	registered, err := service.Register(ctx, &types.CreateUserRequest{Name: "Jane", Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := service.Login(ctx, &types.LoginRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	var invalid *ErrInvalidCredentials
	_, err = service.Login(ctx, &types.LoginRequest{Email: "jane@example.com", Password: "nope"})
	assert.True(t, errors.As(err, &invalid))
	_, err = service.Login(ctx, &types.LoginRequest{Email: "ghost@example.com", Password: "password123"})
	assert.True(t, errors.As(err, &invalid))
}

func TestUserService_Profile(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()
	registered, err := service.Register(ctx, &types.CreateUserRequest{Name: "Jane", Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := service.Profile(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.Name)

	_, err = service.Profile(ctx, uuid.New())
	var notFound *ErrUserNotFound
	assert.True(t, errors.As(err, &notFound))
}
