package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/quantrail/reckon/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AdminUser{}))

	return NewAuthService(zap.NewNop(), db, "test-secret")
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()

	t.Run("needs setup until the first user exists", func(t *testing.T) {
		svc := newTestAuthService(t)

		needs, err := svc.NeedsSetup(ctx)
		require.NoError(t, err)
		assert.True(t, needs)

		_, err = svc.CreateUser(ctx, "admin", "secret", "Admin", "admin")
		require.NoError(t, err)

		needs, err = svc.NeedsSetup(ctx)
		require.NoError(t, err)
		assert.False(t, needs)
	})

	t.Run("duplicate usernames are rejected", func(t *testing.T) {
		svc := newTestAuthService(t)

		_, err := svc.CreateUser(ctx, "admin", "secret", "Admin", "admin")
		require.NoError(t, err)

		_, err = svc.CreateUser(ctx, "admin", "other", "Admin", "admin")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("login issues a token that validates", func(t *testing.T) {
		svc := newTestAuthService(t)

		user, err := svc.CreateUser(ctx, "admin", "secret", "Admin", "admin")
		require.NoError(t, err)

		resp, err := svc.Login(ctx, LoginRequest{Username: "admin", Password: "secret"}, "127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, resp.User.ID)
		assert.NotEmpty(t, resp.Token)

		claims, err := svc.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("wrong credentials fail uniformly", func(t *testing.T) {
		svc := newTestAuthService(t)

		_, err := svc.CreateUser(ctx, "admin", "secret", "Admin", "admin")
		require.NoError(t, err)

		_, err = svc.Login(ctx, LoginRequest{Username: "admin", Password: "wrong"}, "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.Login(ctx, LoginRequest{Username: "ghost", Password: "secret"}, "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("garbage tokens are rejected", func(t *testing.T) {
		svc := newTestAuthService(t)

		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("change password requires the old one", func(t *testing.T) {
		svc := newTestAuthService(t)

		user, err := svc.CreateUser(ctx, "admin", "secret", "Admin", "admin")
		require.NoError(t, err)

		err = svc.ChangePassword(ctx, user.ID, "wrong", "newpass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		require.NoError(t, svc.ChangePassword(ctx, user.ID, "secret", "newpass"))

		_, err = svc.Login(ctx, LoginRequest{Username: "admin", Password: "newpass"}, "")
		assert.NoError(t, err)
	})
}
