package fetcher

import (
	"context"
	"regexp"

	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

var tiktokVideoIDPattern = regexp.MustCompile(`tiktok\.com/@[^/\s]+/video/([0-9]+)`)

type TikTokFetcher struct {
	ytdlp *Ytdlp
}

func NewTikTokFetcher(ytdlp *Ytdlp) *TikTokFetcher {
	return &TikTokFetcher{ytdlp: ytdlp}
}

func (f *TikTokFetcher) ExtractVideoID(url string) (string, error) {
	matches := tiktokVideoIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", utils.NewExtractionError(url)
	}
	return matches[1], nil
}

func (f *TikTokFetcher) Fetch(ctx context.Context, url string) (*models.MediaFile, error) {
	videoID, err := f.ExtractVideoID(url)
	if err != nil {
		return nil, err
	}

	file, err := f.ytdlp.DownloadVideo(ctx, url, "tiktok_"+videoID)
	if err != nil {
		return nil, utils.NewFetchError(url, err)
	}
	return file, nil
}

func (f *TikTokFetcher) Cleanup(file *models.MediaFile) error {
	return cleanup(file)
}
