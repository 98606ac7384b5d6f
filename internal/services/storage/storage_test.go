package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

type memoryStorage struct {
	objects   map[string][]byte
	metadata  map[string]map[string]string
	types     map[string]string
	uploadErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		objects:  map[string][]byte{},
		metadata: map[string]map[string]string{},
		types:    map[string]string{},
	}
}

func (m *memoryStorage) BucketName() string { return "memory" }

func (m *memoryStorage) UploadWithMetadata(ctx context.Context, key string, data io.Reader, size int64, contentType string, metadata map[string]string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[key] = body
	m.metadata[key] = metadata
	m.types[key] = contentType
	return nil
}

func (m *memoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func stageFile(t *testing.T, name, content string) *models.MediaFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &models.MediaFile{
		Path:     path,
		Name:     name,
		Kind:     models.MediaKindVideo,
		MimeType: "video/mp4",
	}
}

func TestMediaArchiveArchive(t *testing.T) {
	store := newMemoryStorage()
	archive := NewMediaArchive(store)
	archive.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	file := stageFile(t, "reel_abc.mp4", "video-bytes")

	key, err := archive.Archive(context.Background(), file, "https://www.instagram.com/reel/abc", 42)
	require.NoError(t, err)

	assert.Equal(t, "video/2024/03/09/reel_abc.mp4", key)
	assert.Equal(t, []byte("video-bytes"), store.objects[key])
	assert.Equal(t, "video/mp4", store.types[key])
	assert.Equal(t, "42", store.metadata[key]["chat_id"])
	assert.Equal(t, "https://www.instagram.com/reel/abc", store.metadata[key]["source_url"])
}

func TestMediaArchiveDefaultsContentType(t *testing.T) {
	store := newMemoryStorage()
	archive := NewMediaArchive(store)

	file := stageFile(t, "blob.bin", "x")
	file.MimeType = ""

	key, err := archive.Archive(context.Background(), file, "", 1)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", store.types[key])
	_, hasSource := store.metadata[key]["source_url"]
	assert.False(t, hasSource)
}

func TestMediaArchiveErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		archive := NewMediaArchive(newMemoryStorage())
		file := &models.MediaFile{Path: filepath.Join(t.TempDir(), "gone.mp4"), Name: "gone.mp4", Kind: models.MediaKindVideo}

		_, err := archive.Archive(context.Background(), file, "", 1)
		require.Error(t, err)
		assert.Equal(t, utils.ErrorCodeArchiveError, utils.CodeOf(err))
	})

	t.Run("upload failure", func(t *testing.T) {
		store := newMemoryStorage()
		store.uploadErr = errors.New("bucket unavailable")
		archive := NewMediaArchive(store)

		_, err := archive.Archive(context.Background(), stageFile(t, "a.mp4", "a"), "", 1)
		require.Error(t, err)
		assert.Equal(t, utils.ErrorCodeArchiveError, utils.CodeOf(err))
		assert.ErrorIs(t, err, store.uploadErr)
	})
}

func TestNewArchiveDisabled(t *testing.T) {
	archive, err := NewArchive(&config.S3Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, archive)
}

type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string][]byte
	headers  map[string]http.Header
}

func newFakeS3() *fakeS3 {
	return &fakeS3{bodies: map[string][]byte{}, headers: map[string]http.Header{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.bodies[r.URL.Path] = body
		f.headers[r.URL.Path] = r.Header.Clone()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.bodies[r.URL.Path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Storage(t *testing.T, handler http.Handler) *S3Storage {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewS3Storage(&config.S3Config{
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		BucketName:      "relay-archive",
		EndpointURL:     server.URL,
	})
	require.NoError(t, err)
	return s
}

func TestS3StorageRoundTrip(t *testing.T) {
	fake := newFakeS3()
	s := newTestS3Storage(t, fake)
	ctx := context.Background()

	assert.Equal(t, "relay-archive", s.BucketName())

	exists, err := s.Exists(ctx, "video/clip.mp4")
	require.NoError(t, err)
	assert.False(t, exists)

	payload := []byte("clip")
	err = s.UploadWithMetadata(ctx, "video/clip.mp4", bytes.NewReader(payload), int64(len(payload)), "video/mp4", map[string]string{"chat_id": "7"})
	require.NoError(t, err)

	exists, err = s.Exists(ctx, "video/clip.mp4")
	require.NoError(t, err)
	assert.True(t, exists)

	fake.mu.Lock()
	assert.Equal(t, "7", fake.headers["/relay-archive/video/clip.mp4"].Get("X-Amz-Meta-Chat_id"))
	fake.mu.Unlock()
}

func TestS3StorageUploadFailure(t *testing.T) {
	s := newTestS3Storage(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	err := s.UploadWithMetadata(context.Background(), "k", bytes.NewReader([]byte("x")), 1, "text/plain", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload to S3")
}

func TestMediaArchivePing(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		archive := NewMediaArchive(newTestS3Storage(t, newFakeS3()))
		assert.Equal(t, "relay-archive", archive.Bucket())
		assert.NoError(t, archive.Ping(context.Background()))
	})

	t.Run("unreachable names the bucket", func(t *testing.T) {
		archive := NewMediaArchive(newTestS3Storage(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})))

		err := archive.Ping(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket relay-archive is unreachable")
	})
}
