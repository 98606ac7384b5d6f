package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Telegram  TelegramConfig
	Download  DownloadConfig
	Resolver  ResolverConfig
	Converter ConverterConfig
	S3        S3Config
}

type ServerConfig struct {
	Port              string
	Host              string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type TelegramConfig struct {
	BotUsername string
	BotToken    string
	PollTimeout int // seconds
}

type DownloadConfig struct {
	TempDir         string
	YtdlpPath       string
	DownloadTimeout time.Duration
}

type ResolverConfig struct {
	APIURL  string
	Timeout time.Duration
}

type ConverterConfig struct {
	FFmpegPath        string
	AnimationDuration time.Duration
}

// S3Config configures the optional archive of relayed media.
type S3Config struct {
	Enabled         bool
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	EndpointURL     string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{}
	var missing []string

	required := func(key string) string {
		value := os.Getenv(key)
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.RateLimitRequests = getEnvInt("OPS_RATE_LIMIT_REQUESTS", 60)
	rateLimitWindow, err := time.ParseDuration(getEnv("OPS_RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPS_RATE_LIMIT_WINDOW: %w", err)
	}
	cfg.Server.RateLimitWindow = rateLimitWindow

	// Telegram configuration
	cfg.Telegram.BotUsername = strings.TrimPrefix(required("TELEGRAM_BOT_USERNAME"), "@")
	cfg.Telegram.BotToken = required("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.PollTimeout = getEnvInt("TELEGRAM_POLL_TIMEOUT", 60)

	// Download configuration
	cfg.Download.TempDir = getEnv("TEMP_DIR", os.TempDir())
	cfg.Download.YtdlpPath = getEnv("YTDLP_PATH", "yt-dlp")
	downloadTimeout, err := time.ParseDuration(getEnv("DOWNLOAD_TIMEOUT", "300s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_TIMEOUT: %w", err)
	}
	cfg.Download.DownloadTimeout = downloadTimeout

	// Short link resolver configuration
	cfg.Resolver.APIURL = getEnv("RESOLVER_API_URL", "https://unshorten.me/json")
	resolverTimeout, err := time.ParseDuration(getEnv("RESOLVER_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESOLVER_TIMEOUT: %w", err)
	}
	cfg.Resolver.Timeout = resolverTimeout

	// Converter configuration
	cfg.Converter.FFmpegPath = getEnv("FFMPEG_PATH", "ffmpeg")
	animationDuration, err := time.ParseDuration(getEnv("ANIMATION_DURATION", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ANIMATION_DURATION: %w", err)
	}
	if animationDuration <= 0 {
		return nil, fmt.Errorf("invalid ANIMATION_DURATION: must be positive")
	}
	cfg.Converter.AnimationDuration = animationDuration

	// S3 archive configuration
	cfg.S3.Enabled = getEnvBool("ARCHIVE_ENABLED", false)
	cfg.S3.Region = getEnv("AWS_REGION", "us-east-1")
	cfg.S3.EndpointURL = getEnv("AWS_ENDPOINT_URL", "") // Optional for LocalStack
	if cfg.S3.Enabled {
		cfg.S3.BucketName = required("S3_BUCKET_NAME")
		cfg.S3.AccessKeyID = required("AWS_ACCESS_KEY_ID")
		cfg.S3.SecretAccessKey = required("AWS_SECRET_ACCESS_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
