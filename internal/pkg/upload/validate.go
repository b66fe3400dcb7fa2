package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

const (
	// MaxFileSize is the largest accepted source photo.
	MaxFileSize = 10 << 20
	// MinDimension is the smallest accepted width or height in pixels.
	MinDimension = 64
)

var (
	ErrUnsupportedType = errors.New("Invalid file type. Only JPEG, PNG, WEBP and GIF are allowed")
	ErrFileTooLarge    = errors.New("File too large. Maximum size is 10MB")
	ErrEmptyFile       = errors.New("No file provided")
	ErrCorruptImage    = errors.New("The file could not be decoded as an image")
	ErrImageTooSmall   = errors.New("Image too small")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	// Note: SVG is intentionally excluded due to XSS risk without sanitization
}

var mimeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Info describes a validated source image.
type Info struct {
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against a whitelist of image types. Returns detected mime or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && !allowedExt[ext] {
		return "", ErrUnsupportedType
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/") || strings.HasPrefix(detected, "application/xhtml") ||
		strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", ErrUnsupportedType
	}

	if _, ok := mimeExt[detected]; ok {
		return detected, nil
	}
	return "", ErrUnsupportedType
}

// Inspect validates size, type and dimensions of an uploaded photo.
func Inspect(filename string, data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	mime, err := ValidateImageBySniff(filename, data)
	if err != nil {
		return nil, err
	}

	img, err := decode(mime, data)
	if err != nil {
		return nil, ErrCorruptImage
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinDimension || bounds.Dy() < MinDimension {
		return nil, fmt.Errorf("%w. Minimum size is %dx%d pixels", ErrImageTooSmall, MinDimension, MinDimension)
	}

	return &Info{
		MimeType: mime,
		Ext:      mimeExt[mime],
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

func decode(mime string, data []byte) (image.Image, error) {
	if mime == "image/webp" {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	// AutoOrientation applies the EXIF orientation of phone photos
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}
