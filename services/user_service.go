package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"gorm.io/gorm"
)

// UserService manages accounts
type UserService struct {
	db    *gorm.DB
	store storage.FileStore
	log   zerolog.Logger
}

func NewUserService(db *gorm.DB, store storage.FileStore) *UserService {
	return &UserService{db: db, store: store, log: logger.WithComponent("users")}
}

// RegisterInput carries an already validated registration form
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileStats counts what a user has contributed
type ProfileStats struct {
	Uploads   int64 `json:"uploads"`
	Favorites int64 `json:"favorites"`
	Downloads int64 `json:"downloads"`
	Groups    int64 `json:"groups"`
}

// Register stores a new student account. A duplicate email returns
// ErrEmailTaken whether it is caught up front or by the unique index.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var existing int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		ProfileImage: model.DefaultProfileImage,
		Role:         model.RoleStudent,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Msg("registered user")
	return &user, nil
}

// Authenticate returns the user when the password matches
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser loads a user by id
func (s *UserService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Stats counts uploads, favorites, downloads and group memberships
func (s *UserService) Stats(ctx context.Context, userID uint) (*ProfileStats, error) {
	db := s.db.WithContext(ctx)
	var stats ProfileStats
	if err := db.Model(&model.Document{}).Where("user_id = ?", userID).Count(&stats.Uploads).Error; err != nil {
		return nil, err
	}
	if err := db.Table("user_favorites").Where("user_id = ?", userID).Count(&stats.Favorites).Error; err != nil {
		return nil, err
	}
	if err := db.Table("user_downloads").Where("user_id = ?", userID).Count(&stats.Downloads).Error; err != nil {
		return nil, err
	}
	if err := db.Table("group_members").Where("user_id = ?", userID).Count(&stats.Groups).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateNames changes first and last name
func (s *UserService) UpdateNames(ctx context.Context, userID uint, firstName, lastName string) (*model.User, error) {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"first_name": strings.TrimSpace(firstName),
		"last_name":  strings.TrimSpace(lastName),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and bumps
// token_version so every outstanding token stops validating.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return auth.NewBlacklistService(tx).RevokeAllUserTokens(ctx, userID)
	})
}

// ListUsers pages through all accounts, newest first
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]model.User, int64, error) {
	var users []model.User
	var total int64
	query := s.db.WithContext(ctx).Model(&model.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// DeleteUser removes the account with its documents, questions, groups and
// join requests in one transaction, then removes the stored files.
func (s *UserService) DeleteUser(ctx context.Context, userID uint) error {
	var user model.User
	var keys []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var documents []model.Document
		if err := tx.Where("user_id = ?", userID).Find(&documents).Error; err != nil {
			return err
		}
		for i := range documents {
			if err := deleteDocumentRows(tx, &documents[i]); err != nil {
				return err
			}
			keys = append(keys, documents[i].Filename)
		}

		var attachments []string
		if err := tx.Model(&model.GroupPost{}).
			Where("(user_id = ? OR group_id IN (SELECT id FROM study_groups WHERE created_by_id = ?)) AND filename <> ''", userID, userID).
			Pluck("filename", &attachments).Error; err != nil {
			return err
		}
		keys = append(keys, attachments...)

		var groupIDs []uint
		if err := tx.Model(&model.Group{}).Where("created_by_id = ?", userID).Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		for _, id := range groupIDs {
			if err := deleteGroupRows(tx, id); err != nil {
				return err
			}
		}

		steps := []struct {
			sql  string
			args []interface{}
		}{
			{"DELETE FROM group_replies WHERE user_id = ? OR post_id IN (SELECT id FROM group_posts WHERE user_id = ?)", []interface{}{userID, userID}},
			{"DELETE FROM group_posts WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM group_join_requests WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM group_members WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM user_favorites WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM user_downloads WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM notifications WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM questions WHERE user_id = ?", []interface{}{userID}},
			{"DELETE FROM jwt_token_blacklist WHERE user_id = ?", []interface{}{userID}},
		}
		for _, step := range steps {
			if err := tx.Exec(step.sql, step.args...).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&model.User{}, userID).Error
	})
	if err != nil {
		return err
	}

	if user.HasCustomProfileImage() {
		keys = append(keys, storage.PrefixProfilePics+"/"+user.ProfileImage)
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to remove file of deleted user")
		}
	}

	s.log.Info().Uint("user_id", userID).Int("files", len(keys)).Msg("deleted user")
	return nil
}
