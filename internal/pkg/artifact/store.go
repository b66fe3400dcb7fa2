package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("artifact: invalid object key")

// Store persists binary artifacts and returns their public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// NewStore builds the store selected by cfg.Driver.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Driver {
	case DriverS3:
		return NewS3Store(ctx, cfg)
	case DriverLocal, "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("artifact: unknown driver %q", cfg.Driver)
	}
}

// GeneratedImageKey is where the finished image of a task is stored.
func GeneratedImageKey(userID uint, correlationID string) string {
	return fmt.Sprintf("pets-santa/generated/%d/%s.png", userID, correlationID)
}

// OriginalImageKey is where an uploaded source photo is stored.
func OriginalImageKey(userID uint, unixMillis int64, name, ext string) string {
	return fmt.Sprintf("pets-santa/originals/%d/%d-%s%s", userID, unixMillis, name, ext)
}

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// ContentTypeForKey returns the MIME type based on the key's extension
func ContentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
