package fetcher

import (
	"context"

	"github.com/denisAlshanov/tgrelay/internal/models"
)

// MediaFetcher stages the media behind a link as a local file.
type MediaFetcher interface {
	// Fetch downloads the media behind url into a uniquely named local file
	Fetch(ctx context.Context, url string) (*models.MediaFile, error)

	// Cleanup deletes a file previously returned by Fetch
	Cleanup(file *models.MediaFile) error
}

// VideoFetcher is a MediaFetcher that can validate a link before downloading.
type VideoFetcher interface {
	MediaFetcher

	// ExtractVideoID returns the stable video identifier contained in url
	ExtractVideoID(url string) (string, error)
}
