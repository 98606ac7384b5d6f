package telegram

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

const maxImageSize = 20 << 20

// BotClient uses Telegram Bot API (requires bot token)
type BotClient struct {
	bot          *tgbotapi.BotAPI
	token        string
	username     string
	pollTimeout  int
	fileEndpoint string
	httpClient   *http.Client
	stopOnce     sync.Once
}

func NewBotClient(cfg *config.TelegramConfig) (*BotClient, error) {
	return NewBotClientWithEndpoint(cfg, tgbotapi.APIEndpoint, tgbotapi.FileEndpoint, &http.Client{Timeout: 2 * time.Minute})
}

// NewBotClientWithEndpoint creates a client against a custom Bot API server,
// such as a self-hosted telegram-bot-api instance.
func NewBotClientWithEndpoint(cfg *config.TelegramConfig, apiEndpoint, fileEndpoint string, httpClient *http.Client) (*BotClient, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	tgbotapi.SetLogger(utils.GetLogger())

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, apiEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &BotClient{
		bot:          bot,
		token:        cfg.BotToken,
		username:     cfg.BotUsername,
		pollTimeout:  cfg.PollTimeout,
		fileEndpoint: fileEndpoint,
		httpClient:   httpClient,
	}, nil
}

func (c *BotClient) Connect(ctx context.Context) error {
	me, err := c.bot.GetMe()
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram Bot API: %w", err)
	}

	if c.username != "" && !strings.EqualFold(me.UserName, c.username) {
		utils.LogWarn(ctx, "Configured bot username does not match token owner", utils.Fields{
			"configured": c.username,
			"actual":     me.UserName,
		})
	}

	utils.LogInfo(ctx, "Connected as bot", utils.Fields{"username": me.UserName})
	return nil
}

// Ping checks that the Bot API still accepts the token.
func (c *BotClient) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.GetMe(); err != nil {
		return fmt.Errorf("telegram getMe failed: %w", err)
	}
	return nil
}

func (c *BotClient) Username() string {
	return c.bot.Self.UserName
}

// Updates polls Telegram and forwards messages one by one until ctx is done.
func (c *BotClient) Updates(ctx context.Context) <-chan models.IncomingMessage {
	out := make(chan models.IncomingMessage)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	u.AllowedUpdates = []string{"message"}
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		defer close(out)
		defer c.stopPolling()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := toIncomingMessage(update)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (c *BotClient) SendText(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, "text", tgbotapi.NewMessage(chatID, text))
}

func (c *BotClient) SendVideo(ctx context.Context, chatID int64, file *models.MediaFile) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(file.Path))
	video.SupportsStreaming = true
	return c.send(ctx, string(models.MediaKindVideo), video)
}

func (c *BotClient) SendAudio(ctx context.Context, chatID int64, file *models.MediaFile) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(file.Path))
	audio.Title = file.Title
	return c.send(ctx, string(models.MediaKindAudio), audio)
}

func (c *BotClient) SendAnimation(ctx context.Context, chatID int64, file *models.MediaFile) error {
	return c.send(ctx, string(models.MediaKindAnimation), tgbotapi.NewAnimation(chatID, tgbotapi.FilePath(file.Path)))
}

func (c *BotClient) send(ctx context.Context, kind string, message tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return utils.NewSendError(kind, err)
	}
	if _, err := c.bot.Send(message); err != nil {
		return utils.NewSendError(kind, err)
	}
	return nil
}

// DownloadImage resolves fileID to a download URL and decodes the image behind it.
func (c *BotClient) DownloadImage(ctx context.Context, fileID string) (image.Image, error) {
	// Get file info
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, utils.NewDownloadError(fileID, fmt.Errorf("failed to get file info: %w", err))
	}

	fileURL := fmt.Sprintf(c.fileEndpoint, c.token, file.FilePath)

	img, err := c.fetchImage(ctx, fileURL)
	if err != nil {
		return nil, utils.NewDownloadError(fileID, err)
	}
	return img, nil
}

func (c *BotClient) fetchImage(ctx context.Context, fileURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}

	// Download file
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL embeds the bot token, keep it out of logs
		return nil, fmt.Errorf("failed to download file: %s", strings.ReplaceAll(err.Error(), c.token, "<token>"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

func (c *BotClient) Close() error {
	c.stopPolling()
	return nil
}

// stopPolling may be reached from both Close and the polling goroutine;
// the library panics on a second stop.
func (c *BotClient) stopPolling() {
	c.stopOnce.Do(c.bot.StopReceivingUpdates)
}

func toIncomingMessage(update tgbotapi.Update) (models.IncomingMessage, bool) {
	if update.Message == nil || update.Message.Chat == nil {
		return models.IncomingMessage{}, false
	}

	msg := convertMessage(update.Message)
	msg.UpdateID = update.UpdateID
	return *msg, true
}

func convertMessage(m *tgbotapi.Message) *models.IncomingMessage {
	msg := &models.IncomingMessage{
		MessageID: m.MessageID,
		Text:      m.Text,
	}

	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}

	if m.From != nil {
		msg.From = m.From.UserName
	}

	for _, photo := range m.Photo {
		msg.Photos = append(msg.Photos, models.PhotoSize{
			FileID:   photo.FileID,
			Width:    photo.Width,
			Height:   photo.Height,
			FileSize: photo.FileSize,
		})
	}

	if m.ReplyToMessage != nil {
		msg.ReplyTo = convertMessage(m.ReplyToMessage)
	}

	return msg
}
