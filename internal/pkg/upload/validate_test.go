package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func TestInspect_AcceptsCommonFormats(t *testing.T) {
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, testImage(100, 80), nil))
	var gifBuf bytes.Buffer
	require.NoError(t, gif.Encode(&gifBuf, testImage(70, 70), nil))

	tests := []struct {
		name     string
		filename string
		data     []byte
		mime     string
		ext      string
		width    int
	}{
		{"png", "cat.png", encodePNG(t, 128, 96), "image/png", ".png", 128},
		{"jpeg", "dog.JPG", jpg.Bytes(), "image/jpeg", ".jpg", 100},
		{"gif", "bird.gif", gifBuf.Bytes(), "image/gif", ".gif", 70},
		{"no extension", "blob", encodePNG(t, 64, 64), "image/png", ".png", 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.filename, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, info.MimeType)
			assert.Equal(t, tt.ext, info.Ext)
			assert.Equal(t, tt.width, info.Width)
		})
	}
}

func TestInspect_Rejects(t *testing.T) {
	_, err := Inspect("empty.png", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Inspect("huge.png", make([]byte, MaxFileSize+1))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = Inspect("page.png", []byte("<!DOCTYPE html><html><body>hi</body></html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Inspect("cat.svg", encodePNG(t, 100, 100))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Inspect("tiny.png", encodePNG(t, 10, 200))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")

	truncated := encodePNG(t, 100, 100)[:60]
	_, err = Inspect("broken.png", truncated)
	assert.ErrorIs(t, err, ErrCorruptImage)
}

func TestValidateImageBySniff(t *testing.T) {
	mime, err := ValidateImageBySniff("photo.webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)

	_, err = ValidateImageBySniff("data.bin", []byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
