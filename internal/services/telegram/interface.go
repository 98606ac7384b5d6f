package telegram

import (
	"context"
	"image"

	"github.com/denisAlshanov/tgrelay/internal/models"
)

// Gateway defines the Telegram operations the dispatcher needs
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVideo(ctx context.Context, chatID int64, file *models.MediaFile) error
	SendAudio(ctx context.Context, chatID int64, file *models.MediaFile) error
	SendAnimation(ctx context.Context, chatID int64, file *models.MediaFile) error
	DownloadImage(ctx context.Context, fileID string) (image.Image, error)
}

// UpdateSource delivers incoming messages in the order Telegram sent them
type UpdateSource interface {
	Updates(ctx context.Context) <-chan models.IncomingMessage
}
