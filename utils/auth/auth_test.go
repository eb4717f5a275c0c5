package auth

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestHashPassword(t *testing.T) {
	Cost = bcrypt.MinCost
	t.Cleanup(func() { Cost = DefaultCost })

	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)
	assert.NoError(t, VerifyPassword(hash, "123456"))
	assert.ErrorIs(t, VerifyPassword(hash, "654321"), ErrPasswordMismatch)

	assert.False(t, IsPasswordValid("short"))
	assert.True(t, IsPasswordValid("longer"))
}

func newManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        expiry,
		RefreshExpiry: time.Hour,
		Issuer:        "studyhub-test",
	})
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newManager(15 * time.Minute)

	pair, err := m.GeneratePair(42, "ada@example.com", "student", 3)
	require.NoError(t, err)
	assert.Equal(t, 900, pair.ExpiresIn)

	claims, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.NotEmpty(t, claims.ID)

	refresh, err := m.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.NotEqual(t, claims.ID, refresh.ID)
	assert.NotEmpty(t, claims.SessionID)
	assert.Equal(t, claims.SessionID, refresh.SessionID)

	next, err := m.GenerateSessionPair(claims.SessionID, 42, "ada@example.com", "student", 3)
	require.NoError(t, err)
	rotated, err := m.ValidateToken(next.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, rotated.SessionID)

	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTManager_Rejections(t *testing.T) {
	expired := newManager(-time.Minute)
	pair, err := expired.GeneratePair(1, "a@b.co", "student", 0)
	require.NoError(t, err)
	_, err = expired.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	good := newManager(time.Minute)
	pair, err = good.GeneratePair(1, "a@b.co", "student", 0)
	require.NoError(t, err)
	token := pair.AccessToken

	other := NewJWTManager(JWTConfig{Secret: "another-secret", Expiry: time.Minute})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = good.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newBlacklist(t *testing.T) (*BlacklistService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))
	return NewBlacklistService(db), db
}

func TestBlacklist_RevokeSessionCoversRefreshToken(t *testing.T) {
	ctx := context.Background()
	blacklist, _ := newBlacklist(t)
	m := newManager(15 * time.Minute)

	pair, err := m.GeneratePair(7, "grace@example.com", "student", 0)
	require.NoError(t, err)
	access, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := m.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)

	revoked, err := blacklist.IsTokenRevoked(ctx, refresh.ID, refresh.SessionID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, blacklist.RevokeSession(ctx, access, access.ExpiresAt.Time, time.Now().Add(m.RefreshExpiry()), "logout"))

	revoked, err = blacklist.IsTokenRevoked(ctx, access.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = blacklist.IsTokenRevoked(ctx, refresh.ID, refresh.SessionID)
	require.NoError(t, err)
	assert.True(t, revoked, "refresh token of a logged out session must be rejected")

	other, err := m.GeneratePair(7, "grace@example.com", "student", 0)
	require.NoError(t, err)
	otherClaims, err := m.ValidateToken(other.RefreshToken)
	require.NoError(t, err)
	revoked, err = blacklist.IsTokenRevoked(ctx, otherClaims.ID, otherClaims.SessionID)
	require.NoError(t, err)
	assert.False(t, revoked, "other sessions stay valid")

	revoked, err = blacklist.IsTokenRevoked(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklist_RevokeAllUserTokensBumpsVersion(t *testing.T) {
	ctx := context.Background()
	blacklist, db := newBlacklist(t)

	u := model.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", PasswordHash: "x", Role: model.RoleStudent}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, blacklist.RevokeAllUserTokens(ctx, u.ID))

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, u.ID).Error)
	assert.Equal(t, u.TokenVersion+1, reloaded.TokenVersion)
}
