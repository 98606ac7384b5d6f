package converter

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func newConverter(t *testing.T, run CommandRunner) (*FFmpegConverter, string) {
	dir := t.TempDir()
	c := NewFFmpegConverter(&config.ConverterConfig{FFmpegPath: "ffmpeg", AnimationDuration: 3 * time.Second}, dir)
	return c.WithRunner(run), dir
}

func TestCreateAnimation(t *testing.T) {
	var args []string
	var sourceExisted bool

	c, dir := newConverter(t, func(ctx context.Context, name string, a ...string) ([]byte, error) {
		args = a
		_, err := os.Stat(a[3])
		sourceExisted = err == nil
		return nil, os.WriteFile(a[len(a)-1], []byte("mp4"), 0o600)
	})

	file, err := c.CreateAnimation(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, models.MediaKindAnimation, file.Kind)
	assert.Equal(t, "video/mp4", file.MimeType)
	assert.True(t, sourceExisted)
	assert.Contains(t, args, "-loop")
	assert.Contains(t, args, "3")

	// only the animation remains, the png source is removed
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, file.Name, entries[0].Name())

	require.NoError(t, c.Cleanup(file))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateAnimationFFmpegFailure(t *testing.T) {
	c, dir := newConverter(t, func(ctx context.Context, name string, a ...string) ([]byte, error) {
		return []byte("Invalid data found"), errors.New("exit status 1")
	})

	file, err := c.CreateAnimation(context.Background(), testImage())
	require.Error(t, err)
	assert.Nil(t, file)
	assert.Equal(t, utils.ErrorCodeConversionError, utils.CodeOf(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateAnimationNilImage(t *testing.T) {
	c, _ := newConverter(t, nil)

	_, err := c.CreateAnimation(context.Background(), nil)
	assert.Equal(t, utils.ErrorCodeConversionError, utils.CodeOf(err))
}
