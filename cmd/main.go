// Package main provides the entry point for the Telegram media relay bot.
// @title Telegram Media Relay Bot API
// @version 1.0
// @description Operational endpoints of the bot that relays TikTok, Instagram Reel and Spotify links as media.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/denisAlshanov/tgrelay/docs" // Import for swagger docs
	"github.com/denisAlshanov/tgrelay/internal/api/handlers"
	"github.com/denisAlshanov/tgrelay/internal/api/router"
	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/metrics"
	"github.com/denisAlshanov/tgrelay/internal/services/classifier"
	"github.com/denisAlshanov/tgrelay/internal/services/converter"
	"github.com/denisAlshanov/tgrelay/internal/services/dispatcher"
	"github.com/denisAlshanov/tgrelay/internal/services/fetcher"
	"github.com/denisAlshanov/tgrelay/internal/services/resolver"
	"github.com/denisAlshanov/tgrelay/internal/services/storage"
	"github.com/denisAlshanov/tgrelay/internal/services/telegram"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting Telegram media relay bot")

	if err := os.MkdirAll(cfg.Download.TempDir, 0o755); err != nil {
		logger.Fatalf("Failed to create temp dir %s: %v", cfg.Download.TempDir, err)
	}

	// Initialize Telegram client
	botClient, err := telegram.NewBotClient(&cfg.Telegram)
	if err != nil {
		logger.Fatalf("Failed to initialize Telegram client: %v", err)
	}

	logger.Info("Connecting to Telegram...")
	if err := botClient.Connect(context.Background()); err != nil {
		logger.Fatalf("Failed to connect to Telegram: %v", err)
	}

	// Media tooling
	ytdlp := fetcher.NewYtdlp(&cfg.Download)
	if err := ytdlp.Available(); err != nil {
		logger.Warnf("yt-dlp is not available, link relaying will fail: %v", err)
	}
	ffmpeg := converter.NewFFmpegConverter(&cfg.Converter, cfg.Download.TempDir)
	if err := ffmpeg.Available(); err != nil {
		logger.Warnf("ffmpeg is not available, /gif will fail: %v", err)
	}

	// Optional S3 archive
	archive, err := storage.NewArchive(&cfg.S3)
	if err != nil {
		logger.Fatalf("Failed to initialize media archive: %v", err)
	}

	relayMetrics := metrics.GetDefaultMetrics()

	deps := dispatcher.Deps{
		Gateway:     botClient,
		Classifier:  classifier.NewClassifier(),
		Resolver:    resolver.NewHTTPResolver(&cfg.Resolver),
		TikTok:      fetcher.NewTikTokFetcher(ytdlp),
		Reel:        fetcher.NewReelFetcher(ytdlp),
		Spotify:     fetcher.NewSpotifyFetcher(ytdlp),
		Converter:   ffmpeg,
		Metrics:     relayMetrics,
		BotUsername: botClient.Username(),
	}
	if archive != nil {
		deps.Archive = archive
	}
	relay := dispatcher.NewDispatcher(deps, cfg.Download.DownloadTimeout)

	// Ops endpoints
	dependencies := []handlers.Dependency{
		{Name: "telegram", Critical: true, Check: botClient.Ping},
		{Name: "yt-dlp", Check: func(ctx context.Context) error { return ytdlp.Available() }},
		{Name: "ffmpeg", Check: func(ctx context.Context) error { return ffmpeg.Available() }},
	}
	if archive != nil {
		logger.Infof("Archiving relayed media to bucket %s", archive.Bucket())
		dependencies = append(dependencies, handlers.Dependency{Name: "s3", Check: archive.Ping})
	}
	healthHandler := handlers.NewHealthHandler(version, dependencies...)
	r := router.NewRouter(cfg, healthHandler, prometheus.DefaultGatherer)

	go func() {
		logger.Infof("Starting ops server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := r.Start(); err != nil {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Poll updates until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := dispatcher.NewRunner(botClient, relay)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("Update loop stopped: %v", err)
	}

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to shut down ops server: %v", err)
	}

	if err := botClient.Close(); err != nil {
		logger.Errorf("Failed to close Telegram client: %v", err)
	}

	logger.Info("Shutdown complete")
}
