// Package storage persists uploaded files behind a small key/value interface.
// Keys are slash-separated paths such as "documents/<uuid>_notes.pdf".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sahilchouksey/studyhub-api/config"
)

// ErrNotFound is returned when a key has no stored object
var ErrNotFound = errors.New("file not found in storage")

// ErrInvalidKey rejects keys that would escape the storage root
var ErrInvalidKey = errors.New("invalid storage key")

// Key prefixes
const (
	PrefixDocuments    = "documents"
	PrefixProfilePics  = "profile_pics"
	PrefixGroupPosts   = "group_posts"
	DriverLocal        = "local"
	DriverSpaces       = "spaces"
	defaultContentType = "application/octet-stream"
)

// FileStore is implemented by LocalStore and SpacesStore
type FileStore interface {
	// Save writes r under key, replacing any existing object, and returns the byte count
	Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	// Open returns a reader for key or ErrNotFound
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key under prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// New builds the store selected by STORAGE_DRIVER
func New(env *config.EnvironmentVariables) (FileStore, error) {
	switch env.STORAGE_DRIVER {
	case DriverLocal, "":
		return NewLocalStore(env.UPLOAD_DIR)
	case DriverSpaces:
		return NewSpacesStore(SpacesConfig{
			AccessKey: env.DO_SPACES_KEY,
			SecretKey: env.DO_SPACES_SECRET,
			Bucket:    env.DO_SPACES_BUCKET,
			Region:    env.DO_SPACES_REGION,
			Endpoint:  env.DO_SPACES_ENDPOINT,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", env.STORAGE_DRIVER)
	}
}

// cleanKey rejects absolute and parent-relative keys
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
