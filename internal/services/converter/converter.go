package converter

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// ImageConverter turns a still image into an animation file.
type ImageConverter interface {
	CreateAnimation(ctx context.Context, img image.Image) (*models.MediaFile, error)
	Cleanup(file *models.MediaFile) error
}

// CommandRunner executes an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpegConverter loops a still image into a short silent mp4, which Telegram
// plays as an animation.
type FFmpegConverter struct {
	ffmpegPath string
	tempDir    string
	duration   time.Duration
	run        CommandRunner
}

func NewFFmpegConverter(cfg *config.ConverterConfig, tempDir string) *FFmpegConverter {
	return &FFmpegConverter{
		ffmpegPath: cfg.FFmpegPath,
		tempDir:    tempDir,
		duration:   cfg.AnimationDuration,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// WithRunner replaces the command runner, mostly for tests.
func (c *FFmpegConverter) WithRunner(run CommandRunner) *FFmpegConverter {
	c.run = run
	return c
}

// Available reports whether the ffmpeg binary can be found.
func (c *FFmpegConverter) Available() error {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return nil
}

func (c *FFmpegConverter) CreateAnimation(ctx context.Context, img image.Image) (*models.MediaFile, error) {
	if img == nil {
		return nil, utils.NewConversionError(fmt.Errorf("no image"))
	}

	if err := os.MkdirAll(c.tempDir, 0o700); err != nil {
		return nil, utils.NewConversionError(fmt.Errorf("failed to create temp directory: %w", err))
	}

	inputPath := filepath.Join(c.tempDir, utils.StagedFileName("gif_source", "png"))
	outputName := utils.StagedFileName("gif", "mp4")
	outputPath := filepath.Join(c.tempDir, outputName)

	if err := writePNG(inputPath, img); err != nil {
		utils.RemoveFile(inputPath)
		return nil, utils.NewConversionError(err)
	}
	defer utils.RemoveFile(inputPath)

	args := []string{
		"-loop", "1",
		"-i", inputPath,
		"-t", strconv.FormatFloat(c.duration.Seconds(), 'f', -1, 64),
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-an",
		"-y", // Overwrite output file
		outputPath,
	}

	output, err := c.run(ctx, c.ffmpegPath, args...)
	if err != nil {
		utils.RemoveFile(outputPath)
		return nil, utils.NewConversionError(fmt.Errorf("ffmpeg failed: %w, output: %s", err, string(output)))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, utils.NewConversionError(fmt.Errorf("failed to get animation file info: %w", err))
	}

	return &models.MediaFile{
		Path:     outputPath,
		Name:     outputName,
		Kind:     models.MediaKindAnimation,
		MimeType: "video/mp4",
		Size:     info.Size(),
	}, nil
}

func (c *FFmpegConverter) Cleanup(file *models.MediaFile) error {
	if file == nil {
		return nil
	}
	if err := utils.RemoveFile(file.Path); err != nil {
		return utils.NewCleanupError(file.Name, err)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	return file.Close()
}
