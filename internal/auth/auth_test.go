package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Account{}))
	return db
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := SignJWT("01ACCOUNT", "alice", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "01ACCOUNT", claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	token, err := SignJWT("01ACCOUNT", "alice", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(token, "secret")
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(openTestDB(t), "secret", time.Hour)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Len(t, res.Account.ID, 26)
	assert.Equal(t, "alice@example.com", res.Account.Email)

	claims, err := ParseJWT(res.Token, "secret")
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, claims.Subject)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "x@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrEmailExists)
	_, err = svc.Register(ctx, RegisterInput{Username: "carol", Email: "not-an-email", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, RegisterInput{Username: "dave", Email: "d@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	login, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, login.Account.ID)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = svc.Login(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	acc, err := svc.GetAccount(ctx, res.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	_, err = svc.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
