package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/denisAlshanov/tgrelay/internal/metrics"
	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/services/classifier"
	"github.com/denisAlshanov/tgrelay/internal/services/converter"
	"github.com/denisAlshanov/tgrelay/internal/services/fetcher"
	"github.com/denisAlshanov/tgrelay/internal/services/resolver"
	"github.com/denisAlshanov/tgrelay/internal/services/telegram"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

const (
	GifCommand   = "/gif"
	GifUsageText = "/gif command should be used with a photo reply only"
)

// Archiver copies a delivered file somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, file *models.MediaFile, sourceURL string, chatID int64) (string, error)
}

// Deps are the collaborators a Dispatcher works with. Archive is optional.
type Deps struct {
	Gateway     telegram.Gateway
	Classifier  *classifier.Classifier
	Resolver    resolver.LinkResolver
	TikTok      fetcher.VideoFetcher
	Reel        fetcher.MediaFetcher
	Spotify     fetcher.MediaFetcher
	Converter   converter.ImageConverter
	Archive     Archiver
	Metrics     *metrics.Metrics
	BotUsername string
}

type Dispatcher struct {
	deps        Deps
	turnTimeout time.Duration
}

func NewDispatcher(deps Deps, turnTimeout time.Duration) *Dispatcher {
	if deps.Classifier == nil {
		deps.Classifier = classifier.NewClassifier()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.GetDefaultMetrics()
	}
	return &Dispatcher{
		deps:        deps,
		turnTimeout: turnTimeout,
	}
}

// HandleMessage runs one update through the relay. Errors are logged, never returned.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *models.IncomingMessage) {
	ctx = utils.WithCorrelationID(ctx, utils.GenerateCorrelationID())
	ctx = utils.WithUpdate(ctx, msg.UpdateID, msg.ChatID)

	if d.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.turnTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			utils.LogError(ctx, "Recovered from panic while handling message", fmt.Errorf("panic: %v", r))
		}
	}()

	d.deps.Metrics.MessagesTotal.Inc()
	utils.LogInfo(ctx, "Received message", utils.Fields{
		"from": msg.From,
		"text": msg.Text,
	})

	if msg.Text == "" {
		return
	}

	if d.isGifCommand(msg.Text) {
		d.handleGif(ctx, msg)
		return
	}

	d.handleLink(ctx, msg)
}

func (d *Dispatcher) isGifCommand(text string) bool {
	text = strings.TrimSpace(text)
	if text == GifCommand {
		return true
	}
	return d.deps.BotUsername != "" && strings.EqualFold(text, GifCommand+"@"+d.deps.BotUsername)
}

func (d *Dispatcher) handleGif(ctx context.Context, msg *models.IncomingMessage) {
	if !msg.IsReply() || !msg.ReplyTo.HasPhoto() {
		d.deps.Metrics.GifCommandsUsed.WithLabelValues("rejected").Inc()
		if err := d.deps.Gateway.SendText(ctx, msg.ChatID, GifUsageText); err != nil {
			d.logFailure(ctx, "Failed to send /gif usage reply", err)
		}
		return
	}

	photo, _ := msg.ReplyTo.LargestPhoto()

	start := time.Now()
	img, err := d.deps.Gateway.DownloadImage(ctx, photo.FileID)
	if err != nil {
		d.deps.Metrics.GifCommandsUsed.WithLabelValues("failed").Inc()
		d.logFailure(ctx, "Failed to download photo for /gif", err)
		return
	}

	file, err := d.deps.Converter.CreateAnimation(ctx, img)
	d.deps.Metrics.FetchDuration.WithLabelValues(string(models.MediaKindAnimation)).Observe(time.Since(start).Seconds())
	if err != nil {
		d.deps.Metrics.GifCommandsUsed.WithLabelValues("failed").Inc()
		d.logFailure(ctx, "Failed to convert photo to animation", err)
		return
	}

	if d.deliver(ctx, msg.ChatID, file, "", d.deps.Converter.Cleanup) {
		d.deps.Metrics.GifCommandsUsed.WithLabelValues("sent").Inc()
	} else {
		d.deps.Metrics.GifCommandsUsed.WithLabelValues("failed").Inc()
	}
}

func (d *Dispatcher) handleLink(ctx context.Context, msg *models.IncomingMessage) {
	link, ok := d.deps.Classifier.Classify(msg.Text)
	if !ok {
		d.deps.Metrics.ClassificationMisses.Inc()
		utils.LogWarn(ctx, "No supported link found in message", utils.Fields{
			"code": utils.ErrorCodeClassificationMiss,
			"text": msg.Text,
		})
		return
	}

	d.deps.Metrics.LinksClassified.WithLabelValues(string(link.Kind)).Inc()
	utils.LogInfo(ctx, "Classified link", utils.Fields{
		"kind": link.Kind,
		"url":  link.URL,
	})

	switch link.Kind {
	case models.LinkKindTikTok:
		d.handleTikTok(ctx, msg.ChatID, link)
	case models.LinkKindReel:
		d.fetchAndDeliver(ctx, msg.ChatID, link.URL, models.LinkKindReel, d.deps.Reel)
	case models.LinkKindSpotify:
		// Spotify links go straight to the fetcher without an identifier check.
		d.fetchAndDeliver(ctx, msg.ChatID, link.URL, models.LinkKindSpotify, d.deps.Spotify)
	}
}

func (d *Dispatcher) handleTikTok(ctx context.Context, chatID int64, link models.Link) {
	url := link.URL
	if link.Short {
		expanded, err := d.deps.Resolver.Expand(ctx, url)
		if err != nil {
			d.logFailure(ctx, "Failed to resolve short URL, trying it as is", err)
		} else {
			utils.LogDebug(ctx, "Expanded short URL", utils.Fields{
				"short_url": url,
				"url":       expanded,
			})
			url = expanded
		}
	}

	if _, err := d.deps.TikTok.ExtractVideoID(url); err != nil {
		d.logFailure(ctx, "Failed to extract video ID from link", err)
		return
	}

	d.fetchAndDeliver(ctx, chatID, url, models.LinkKindTikTok, d.deps.TikTok)
}

func (d *Dispatcher) fetchAndDeliver(ctx context.Context, chatID int64, url string, kind models.LinkKind, f fetcher.MediaFetcher) {
	start := time.Now()
	file, err := f.Fetch(ctx, url)
	d.deps.Metrics.FetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		d.logFailure(ctx, "Failed to fetch media", err)
		return
	}

	d.deliver(ctx, chatID, file, url, f.Cleanup)
}

// deliver sends file and releases it on every path. It reports whether the send succeeded.
func (d *Dispatcher) deliver(ctx context.Context, chatID int64, file *models.MediaFile, sourceURL string, release func(*models.MediaFile) error) (sent bool) {
	defer func() {
		if err := release(file); err != nil {
			d.logFailure(ctx, "Failed to delete media file", err)
		}
	}()

	if err := d.send(ctx, chatID, file); err != nil {
		d.logFailure(ctx, "Failed to send media", err)
		return false
	}

	d.deps.Metrics.MediaSent.WithLabelValues(string(file.Kind)).Inc()
	utils.LogInfo(ctx, "Media sent", utils.Fields{
		"kind":      file.Kind,
		"file_name": file.Name,
	})

	if d.deps.Archive != nil {
		key, err := d.deps.Archive.Archive(ctx, file, sourceURL, chatID)
		if err != nil {
			d.logFailure(ctx, "Failed to archive media", err)
		} else {
			d.deps.Metrics.MediaArchived.Inc()
			utils.LogDebug(ctx, "Media archived", utils.Fields{"key": key})
		}
	}

	return true
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, file *models.MediaFile) error {
	switch file.Kind {
	case models.MediaKindVideo:
		return d.deps.Gateway.SendVideo(ctx, chatID, file)
	case models.MediaKindAudio:
		return d.deps.Gateway.SendAudio(ctx, chatID, file)
	case models.MediaKindAnimation:
		return d.deps.Gateway.SendAnimation(ctx, chatID, file)
	default:
		return utils.NewSendError(string(file.Kind), fmt.Errorf("unsupported media kind %q", file.Kind))
	}
}

func (d *Dispatcher) logFailure(ctx context.Context, message string, err error) {
	code := utils.CodeOf(err)
	if code != "" {
		d.deps.Metrics.Errors.WithLabelValues(string(code)).Inc()
	}
	utils.LogError(ctx, message, err, utils.Fields{"code": code})
}
