package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// fakeYtdlp writes a file where yt-dlp would have written it and records the arguments.
type fakeYtdlp struct {
	ext   string
	fail  bool
	calls [][]string
}

func (f *fakeYtdlp) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if f.fail {
		return []byte("ERROR: Unsupported URL"), errors.New("exit status 1")
	}
	for i, arg := range args {
		if arg == "-o" {
			out := strings.Replace(args[i+1], "%(ext)s", f.ext, 1)
			// leftover fragment that must be ignored
			os.WriteFile(strings.Replace(args[i+1], "%(ext)s", "f137."+f.ext, 1), []byte("x"), 0o600)
			return nil, os.WriteFile(out, []byte("media"), 0o600)
		}
	}
	return nil, errors.New("no output template")
}

func newYtdlp(t *testing.T, fake *fakeYtdlp) (*Ytdlp, string) {
	dir := t.TempDir()
	y := NewYtdlp(&config.DownloadConfig{TempDir: dir, YtdlpPath: "yt-dlp"}).WithRunner(fake.run)
	return y, dir
}

func TestTikTokExtractVideoID(t *testing.T) {
	f := NewTikTokFetcher(nil)

	id, err := f.ExtractVideoID("https://www.tiktok.com/@user/video/123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", id)

	id, err = f.ExtractVideoID("https://www.tiktok.com/@some.user/video/7301?is_from_webapp=1")
	require.NoError(t, err)
	assert.Equal(t, "7301", id)

	_, err = f.ExtractVideoID("https://vm.tiktok.com/AbCd12")
	require.Error(t, err)
	assert.Equal(t, utils.ErrorCodeExtractionError, utils.CodeOf(err))
}

func TestTikTokFetchAndCleanup(t *testing.T) {
	fake := &fakeYtdlp{ext: "mp4"}
	y, dir := newYtdlp(t, fake)
	f := NewTikTokFetcher(y)

	file, err := f.Fetch(context.Background(), "https://www.tiktok.com/@user/video/123456")
	require.NoError(t, err)

	assert.Equal(t, models.MediaKindVideo, file.Kind)
	assert.Equal(t, dir, filepath.Dir(file.Path))
	assert.True(t, strings.HasPrefix(file.Name, "tiktok_123456_"))
	assert.True(t, strings.HasSuffix(file.Name, ".mp4"))
	assert.Equal(t, int64(5), file.Size)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "https://www.tiktok.com/@user/video/123456", fake.calls[0][len(fake.calls[0])-1])

	// the f137 fragment is gone, only the merged file stays
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, f.Cleanup(file))
	_, err = os.Stat(file.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchNamesAreUnique(t *testing.T) {
	fake := &fakeYtdlp{ext: "mp4"}
	y, _ := newYtdlp(t, fake)
	f := NewReelFetcher(y)

	first, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/abc")
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/abc")
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
}

func TestReelFetchFailure(t *testing.T) {
	fake := &fakeYtdlp{fail: true}
	y, dir := newYtdlp(t, fake)
	f := NewReelFetcher(y)

	file, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/abc")
	require.Error(t, err)
	assert.Nil(t, file)
	assert.Equal(t, utils.ErrorCodeFetchFailure, utils.CodeOf(err))
	assert.Contains(t, err.Error(), "Unsupported URL")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSpotifyFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
<meta property="og:title" content="Never Gonna Give You Up"/>
<meta property="og:description" content="Rick Astley &#183; Whenever You Need Somebody · Song · 1987"/>
</head></html>`))
	}))
	defer server.Close()

	fake := &fakeYtdlp{ext: "mp3"}
	y, _ := newYtdlp(t, fake)
	f := NewSpotifyFetcher(y)

	file, err := f.Fetch(context.Background(), server.URL+"/track/4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)

	assert.Equal(t, models.MediaKindAudio, file.Kind)
	assert.True(t, strings.HasSuffix(file.Name, ".mp3"))
	assert.Equal(t, "Rick Astley - Never Gonna Give You Up", file.Title)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "ytsearch1:Rick Astley - Never Gonna Give You Up", fake.calls[0][len(fake.calls[0])-1])
	assert.Contains(t, fake.calls[0], "-x")

	require.NoError(t, f.Cleanup(file))
}

func TestSpotifyFetchPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fake := &fakeYtdlp{ext: "mp3"}
	y, _ := newYtdlp(t, fake)
	f := NewSpotifyFetcher(y)

	_, err := f.Fetch(context.Background(), server.URL+"/track/missing")
	require.Error(t, err)
	assert.Equal(t, utils.ErrorCodeFetchFailure, utils.CodeOf(err))
	assert.Empty(t, fake.calls)
}

func TestParseTrackQuery(t *testing.T) {
	query, err := parseTrackQuery(`<meta property="og:title" content="Song &amp; Dance"/>`)
	require.NoError(t, err)
	assert.Equal(t, "Song & Dance", query)

	_, err = parseTrackQuery(`<html></html>`)
	assert.Error(t, err)
}

func TestCleanupMissingFile(t *testing.T) {
	assert.NoError(t, cleanup(nil))
	assert.NoError(t, cleanup(&models.MediaFile{Path: filepath.Join(t.TempDir(), "gone.mp4"), Name: "gone.mp4"}))
}
