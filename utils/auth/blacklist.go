package auth

import (
	"context"
	"time"

	"github.com/sahilchouksey/studyhub-api/model"
	"gorm.io/gorm"
)

// BlacklistService handles JWT token revocation
type BlacklistService struct {
	db *gorm.DB
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(db *gorm.DB) *BlacklistService {
	return &BlacklistService{db: db}
}

// RevokeToken adds a token to the blacklist
func (s *BlacklistService) RevokeToken(ctx context.Context, jti string, userID uint, expiresAt time.Time, reason string) error {
	blacklistEntry := model.JWTTokenBlacklist{
		Token:     jti,
		UserID:    userID,
		Reason:    reason,
		ExpiresAt: expiresAt,
	}

	return s.db.WithContext(ctx).Create(&blacklistEntry).Error
}

// RevokeSession blacklists a token's JTI until tokenExpiry and its session id
// until sessionEnd, so every other token of the session is rejected too.
func (s *BlacklistService) RevokeSession(ctx context.Context, claims *Claims, tokenExpiry, sessionEnd time.Time, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := NewBlacklistService(tx)
		if err := scoped.RevokeToken(ctx, claims.ID, claims.UserID, tokenExpiry, reason); err != nil {
			return err
		}
		if claims.SessionID == "" {
			return nil
		}
		return scoped.RevokeToken(ctx, claims.SessionID, claims.UserID, sessionEnd, reason)
	})
}

// IsTokenRevoked reports whether any of the given ids (a JTI, a session id)
// is blacklisted. Empty ids are ignored.
func (s *BlacklistService) IsTokenRevoked(ctx context.Context, ids ...string) (bool, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, id)
		}
	}
	if len(keys) == 0 {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.JWTTokenBlacklist{}).
		Where("token IN ? AND expires_at > ?", keys, time.Now()).
		Count(&count).
		Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// RevokeAllUserTokens increments user's token version to invalidate all tokens.
// Pass a service built on a transaction to commit it with other changes.
func (s *BlacklistService) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1)).
		Error
}

// CleanupExpiredTokens removes entries whose token would no longer validate
func (s *BlacklistService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.JWTTokenBlacklist{})
	return result.RowsAffected, result.Error
}
