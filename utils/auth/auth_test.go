package auth

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/student-records/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{Secret: "test-secret", Issuer: "institute-registration"})
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	m := testManager()

	issued, err := m.GenerateAccessToken(7, "admin@test.edu", model.RoleAdmin, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)
	assert.WithinDuration(t, time.Now().Add(DefaultAccessExpiry), issued.ExpiresAt, 5*time.Second)

	claims, err := m.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, issued.JTI, claims.ID)

	_, err = m.ValidateRefreshToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsForeignAndExpiredTokens(t *testing.T) {
	m := testManager()

	other := NewJWTManager(JWTConfig{Secret: "other-secret", Issuer: "institute-registration"})
	foreign, err := other.GenerateRefreshToken(1, "a@b.co", model.RoleAdmin, 0)
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTManager(JWTConfig{Secret: "test-secret", Issuer: "institute-registration", Expiry: time.Nanosecond})
	issued, err := expired.GenerateAccessToken(1, "a@b.co", model.RoleAdmin, 0)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = m.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword_HashAndVerify(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "correct horse battery"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong password"), ErrPasswordMismatch)
}

func TestBlacklistService(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.JWTTokenBlacklist{}))

	ctx := context.Background()
	svc := NewBlacklistService(db)

	require.NoError(t, svc.RevokeToken(ctx, "live-jti", 1, time.Now().Add(time.Hour), "logout"))
	require.NoError(t, svc.RevokeToken(ctx, "stale-jti", 1, time.Now().Add(-time.Hour), "logout"))
	assert.ErrorIs(t, svc.RevokeToken(ctx, "live-jti", 1, time.Now().Add(time.Hour), "token_refresh"), ErrTokenAlreadyRevoked)

	revoked, err := svc.IsTokenRevoked(ctx, "live-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.IsTokenRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	removed, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	user := model.User{Email: "admin@test.edu", PasswordHash: "x", Name: "Admin", Role: model.RoleAdmin}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, svc.RevokeAllUserTokens(ctx, user.ID))
	require.NoError(t, db.First(&user, user.ID).Error)
	assert.Equal(t, 1, user.TokenVersion)
}
