package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagedFileName(t *testing.T) {
	testCases := []struct {
		name   string
		prefix string
		ext    string
		suffix string
	}{
		{name: "Video", prefix: "tiktok", ext: "mp4", suffix: ".mp4"},
		{name: "Dotted extension", prefix: "spotify", ext: ".mp3", suffix: ".mp3"},
		{name: "No extension", prefix: "reel", ext: "", suffix: ""},
		{name: "Unsafe prefix", prefix: "a/b c", ext: "mp4", suffix: ".mp4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first := StagedFileName(tc.prefix, tc.ext)
			second := StagedFileName(tc.prefix, tc.ext)

			assert.NotEqual(t, first, second)
			assert.True(t, strings.HasSuffix(first, tc.suffix))
			assert.NotContains(t, first, "/")
			assert.NotContains(t, first, " ")
		})
	}
}

func TestSanitizeFileNameLength(t *testing.T) {
	long := strings.Repeat("x", 300) + ".mp4"

	sanitized := SanitizeFileName(long)
	assert.Len(t, sanitized, 200)
	assert.True(t, strings.HasSuffix(sanitized, ".mp4"))
}

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.mp4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	require.NoError(t, RemoveFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Missing files are not an error
	assert.NoError(t, RemoveFile(path))
	assert.NoError(t, RemoveFile(""))
}

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("relay: %w", NewFetchError("https://www.instagram.com/reel/abc", cause))

	assert.Equal(t, ErrorCodeFetchFailure, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "FETCH_FAILURE")
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
}

func TestLoggerFromContext(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), GenerateCorrelationID())
	ctx = WithUpdate(ctx, 42, 1001)

	entry := LoggerFromContext(ctx)
	assert.Equal(t, 42, entry.Data["update_id"])
	assert.Equal(t, int64(1001), entry.Data["chat_id"])
	assert.NotEmpty(t, entry.Data["correlation_id"])
}

func TestGenerateIDs(t *testing.T) {
	first := GenerateCorrelationID()
	second := GenerateCorrelationID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
