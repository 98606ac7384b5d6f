package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// MediaArchive keeps a copy of every relayed file in object storage.
type MediaArchive struct {
	storage StorageInterface
	now     func() time.Time
}

func NewMediaArchive(storage StorageInterface) *MediaArchive {
	return &MediaArchive{
		storage: storage,
		now:     time.Now,
	}
}

// Archive uploads file under <kind>/<yyyy>/<mm>/<dd>/<name> and returns the key.
func (a *MediaArchive) Archive(ctx context.Context, file *models.MediaFile, sourceURL string, chatID int64) (string, error) {
	key := fmt.Sprintf("%s/%s/%s", file.Kind, a.now().UTC().Format("2006/01/02"), file.Name)

	f, err := os.Open(file.Path)
	if err != nil {
		return "", utils.NewArchiveError(key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", utils.NewArchiveError(key, err)
	}

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	metadata := map[string]string{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"media_kind": string(file.Kind),
		"file_name":  file.Name,
	}
	if sourceURL != "" {
		metadata["source_url"] = sourceURL
	}

	if err := a.storage.UploadWithMetadata(ctx, key, f, info.Size(), contentType, metadata); err != nil {
		return "", utils.NewArchiveError(key, err)
	}

	utils.LogDebug(ctx, "Uploaded media to archive", utils.Fields{
		"bucket": a.storage.BucketName(),
		"key":    key,
	})

	return key, nil
}

// Bucket names the bucket the archive writes to.
func (a *MediaArchive) Bucket() string {
	return a.storage.BucketName()
}

// Ping verifies the bucket is reachable.
func (a *MediaArchive) Ping(ctx context.Context) error {
	if _, err := a.storage.Exists(ctx, "health-check-test"); err != nil {
		return fmt.Errorf("bucket %s is unreachable: %w", a.storage.BucketName(), err)
	}
	return nil
}
