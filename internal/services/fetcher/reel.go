package fetcher

import (
	"context"

	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

type ReelFetcher struct {
	ytdlp *Ytdlp
}

func NewReelFetcher(ytdlp *Ytdlp) *ReelFetcher {
	return &ReelFetcher{ytdlp: ytdlp}
}

func (f *ReelFetcher) Fetch(ctx context.Context, url string) (*models.MediaFile, error) {
	file, err := f.ytdlp.DownloadVideo(ctx, url, "reel")
	if err != nil {
		return nil, utils.NewFetchError(url, err)
	}
	return file, nil
}

func (f *ReelFetcher) Cleanup(file *models.MediaFile) error {
	return cleanup(file)
}
