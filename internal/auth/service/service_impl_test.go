package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/auth/domain"
	"github.com/crownlab/crownlab/internal/auth/repository"
	"github.com/crownlab/crownlab/internal/config"
)

var testDBSeq int

func newService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:auth_svc_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	users, sessions := repository.Provide(db)
	svc := NewService(ServiceParams{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Config:   config.Config{SessionTTLHours: 1},
		Users:    users,
		Sessions: sessions,
	})
	return svc, db
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	svc, _ := newService(t)

	user, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "  Tech@Example.Test ",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "tech@example.test", user.Email)
	assert.Equal(t, "tech@example.test", user.DisplayName)
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "tech@example.test",
		Password: "short",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Email: "tech@example.test", Password: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, domain.LoginRequest{Email: "Tech@Example.Test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RawToken)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	session, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "tech@example.test", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Login(context.Background(), domain.LoginRequest{Email: "ghost@example.test", Password: "whatever"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, domain.LoginRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.RawToken))

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)

	// Logging out an unknown token is a no-op.
	assert.NoError(t, svc.Logout(ctx, "does-not-exist"))
}

func TestAuthenticateExpiredSession(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, domain.LoginRequest{Email: "tech@example.test", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.Session{}).
		Where("id = ?", result.SessionID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}
