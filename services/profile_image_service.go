package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"gorm.io/gorm"
)

// ProfileImageSize is the edge length of stored profile pictures
const ProfileImageSize = 150

// MaxImageDimension bounds the width and height of an uploaded picture. It is
// checked from the image header before any pixels are decoded.
const MaxImageDimension = 4096

// AllowedImageTypes lists the extensions accepted for profile pictures
var AllowedImageTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

// ProfileImageService crops, resizes and stores profile pictures
type ProfileImageService struct {
	db      *gorm.DB
	store   storage.FileStore
	tempDir string
	log     zerolog.Logger
}

// NewProfileImageService creates the service. tempDir may be empty for the
// system default.
func NewProfileImageService(db *gorm.DB, store storage.FileStore, tempDir string) *ProfileImageService {
	return &ProfileImageService{
		db:      db,
		store:   store,
		tempDir: tempDir,
		log:     logger.WithComponent("profile-images"),
	}
}

// Upload replaces the user's profile picture. The image is spooled to a temp
// file, center-cropped to a square and resized before it is stored under
// profile_pics/{userID}_{unix}_{name}. When the database update fails the
// stored image is removed again; the previous custom image is removed only
// after the new one is committed.
func (s *ProfileImageService) Upload(ctx context.Context, userID uint, filename string, r io.Reader) (*model.User, error) {
	ext := storage.Ext(filename)
	if !AllowedImageTypes[ext] {
		return nil, ErrInvalidFileType
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, ErrInvalidFileType
	}

	tmp, err := os.CreateTemp(s.tempDir, "profile-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to spool image: %w", err)
	}

	if err := checkImageBounds(tmpPath); err != nil {
		return nil, err
	}

	img, err := imaging.Open(tmpPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	thumb := imaging.Resize(imaging.CropCenter(img, side, side), ProfileImageSize, ProfileImageSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	safe := storage.SecureFilename(filename)
	if safe == "" || strings.HasPrefix(safe, ".") {
		safe = "avatar." + ext
	}
	name := fmt.Sprintf("%d_%d_%s", userID, time.Now().Unix(), safe)
	key := storage.PrefixProfilePics + "/" + name

	if _, err := s.store.Save(ctx, key, &buf, storage.ContentType(name)); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	var user model.User
	var previous string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		previous = user.ProfileImage
		return tx.Model(&user).Update("profile_image", name).Error
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).Msg("failed to remove image after rollback")
		}
		return nil, err
	}

	user.ProfileImage = name
	if previous != "" && previous != model.DefaultProfileImage && previous != name {
		if err := s.store.Delete(ctx, storage.PrefixProfilePics+"/"+previous); err != nil {
			s.log.Warn().Err(err).Str("image", previous).Msg("failed to remove previous profile image")
		}
	}
	return &user, nil
}

func checkImageBounds(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrInvalidImage, cfg.Width, cfg.Height, MaxImageDimension, MaxImageDimension)
	}
	return nil
}

// Open returns a stored profile picture by file name
func (s *ProfileImageService) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name != storage.SecureFilename(name) {
		return nil, ErrNotFound
	}
	rc, err := s.store.Open(ctx, storage.PrefixProfilePics+"/"+name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rc, nil
}
