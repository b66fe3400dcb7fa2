package artifact

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:4000/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), GeneratedImageKey(7, "kie-1"), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/uploads/pets-santa/generated/7/kie-1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "pets-santa", "generated", "7", "kie-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	// Same key overwrites
	_, err = store.Put(context.Background(), GeneratedImageKey(7, "kie-1"), []byte("v2"), "image/png")
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "pets-santa", "generated", "7", "kie-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/../../b", ".."} {
		_, err := store.Put(context.Background(), key, []byte("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "pets-santa/generated/3/abc.png", GeneratedImageKey(3, "abc"))
	assert.Equal(t, "pets-santa/originals/3/1700000000000-xyz.jpg", OriginalImageKey(3, 1700000000000, "xyz", ".jpg"))
	assert.Equal(t, "image/webp", ContentTypeForKey("a/b.WEBP"))
	assert.Equal(t, "application/octet-stream", ContentTypeForKey("a/b"))
}

func TestFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("image-data"))
		case "/big.png":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(50*time.Millisecond, 32)

	data, contentType, err := f.Fetch(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "image-data", string(data))
	assert.Equal(t, "image/png", contentType)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/big.png")
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/missing.png")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/slow.png")
	assert.Error(t, err)
}

func TestS3StorePut(t *testing.T) {
	var mu sync.Mutex
	var putPath, putBody, putContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			putPath = r.URL.Path
			putBody = string(body)
			putContentType = r.Header.Get("Content-Type")
			mu.Unlock()
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	cfg := &Config{
		Driver:          DriverS3,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		BucketName:      "pets",
		EndpointURL:     srv.URL,
	}
	store, err := NewS3Store(context.Background(), cfg)
	require.NoError(t, err)

	url, err := store.Put(context.Background(), GeneratedImageKey(1, "kie-9"), []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/pets/pets-santa/generated/1/kie-9.png", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/pets/pets-santa/generated/1/kie-9.png", putPath)
	assert.Equal(t, "png", putBody)
	assert.Equal(t, "image/png", putContentType)
}

func TestS3StorePublicBaseURL(t *testing.T) {
	store := &S3Store{config: &Config{BucketName: "pets", Region: "eu-central-1", PublicBaseURL: "https://cdn.example.com"}}
	assert.Equal(t, "https://cdn.example.com/a/b.png", store.publicURL("a/b.png"))

	store.config.PublicBaseURL = ""
	assert.Equal(t, "https://pets.s3.eu-central-1.amazonaws.com/a/b.png", store.publicURL("a/b.png"))
}
