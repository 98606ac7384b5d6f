package fetcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// CommandRunner executes an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Ytdlp downloads media with the yt-dlp command line tool.
type Ytdlp struct {
	path    string
	tempDir string
	run     CommandRunner
}

func NewYtdlp(cfg *config.DownloadConfig) *Ytdlp {
	return &Ytdlp{
		path:    cfg.YtdlpPath,
		tempDir: cfg.TempDir,
		run:     execRunner,
	}
}

// WithRunner replaces the command runner, mostly for tests.
func (y *Ytdlp) WithRunner(run CommandRunner) *Ytdlp {
	y.run = run
	return y
}

// Available reports whether the yt-dlp binary can be found.
func (y *Ytdlp) Available() error {
	if _, err := exec.LookPath(y.path); err != nil {
		return fmt.Errorf("yt-dlp not found in PATH: %w", err)
	}
	return nil
}

// DownloadVideo stores the best available mp4 rendition of url.
func (y *Ytdlp) DownloadVideo(ctx context.Context, url, prefix string) (*models.MediaFile, error) {
	return y.download(ctx, url, prefix, models.MediaKindVideo, "video/mp4",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b",
		"--merge-output-format", "mp4",
	)
}

// DownloadAudio extracts mp3 audio from url, which may also be a yt-dlp search query.
func (y *Ytdlp) DownloadAudio(ctx context.Context, url, prefix string) (*models.MediaFile, error) {
	return y.download(ctx, url, prefix, models.MediaKindAudio, "audio/mpeg",
		"-f", "ba/b",
		"-x",
		"--audio-format", "mp3",
	)
}

func (y *Ytdlp) download(ctx context.Context, url, prefix string, kind models.MediaKind, mimeType string, formatArgs ...string) (*models.MediaFile, error) {
	if err := os.MkdirAll(y.tempDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	base := filepath.Join(y.tempDir, utils.StagedFileName(prefix, ""))

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"-o", base + ".%(ext)s",
	}
	args = append(args, formatArgs...)
	args = append(args, url)

	output, err := y.run(ctx, y.path, args...)
	if err != nil {
		removeMatches(base)
		return nil, fmt.Errorf("yt-dlp failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	path, err := findOutput(base)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloaded file info: %w", err)
	}
	if info.Size() == 0 {
		utils.RemoveFile(path)
		return nil, fmt.Errorf("yt-dlp produced an empty file")
	}

	return &models.MediaFile{
		Path:     path,
		Name:     filepath.Base(path),
		Kind:     kind,
		MimeType: mimeType,
		Size:     info.Size(),
	}, nil
}

// findOutput locates the finished file yt-dlp wrote for the base name and
// removes partial and intermediate fragments.
func findOutput(base string) (string, error) {
	matches, err := filepath.Glob(base + ".*")
	if err != nil {
		return "", err
	}

	var found string
	var leftovers []string
	for _, match := range matches {
		// finished files carry a single extension; fragments look like .f137.mp4 or .mp4.part
		ext := strings.TrimPrefix(match, base+".")
		if found != "" || strings.Contains(ext, ".") || ext == "part" || ext == "ytdl" {
			leftovers = append(leftovers, match)
			continue
		}
		found = match
	}

	for _, leftover := range leftovers {
		utils.RemoveFile(leftover)
	}

	if found == "" {
		return "", fmt.Errorf("yt-dlp did not produce an output file")
	}

	return found, nil
}

func removeMatches(base string) {
	matches, _ := filepath.Glob(base + ".*")
	for _, match := range matches {
		utils.RemoveFile(match)
	}
}

// cleanup is shared by all fetchers that stage files through yt-dlp.
func cleanup(file *models.MediaFile) error {
	if file == nil {
		return nil
	}
	if err := utils.RemoveFile(file.Path); err != nil {
		return utils.NewCleanupError(file.Name, err)
	}
	return nil
}
