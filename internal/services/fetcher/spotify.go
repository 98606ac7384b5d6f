package fetcher

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

var (
	ogTitlePattern       = regexp.MustCompile(`<meta property="og:title" content="([^"]+)"`)
	ogDescriptionPattern = regexp.MustCompile(`<meta property="og:description" content="([^"]+)"`)
)

// SpotifyFetcher looks up the track title on its Spotify page and downloads
// the matching audio from the first yt-dlp search result.
type SpotifyFetcher struct {
	ytdlp      *Ytdlp
	httpClient *http.Client
}

func NewSpotifyFetcher(ytdlp *Ytdlp) *SpotifyFetcher {
	return &SpotifyFetcher{
		ytdlp: ytdlp,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (f *SpotifyFetcher) Fetch(ctx context.Context, url string) (*models.MediaFile, error) {
	query, err := f.trackQuery(ctx, url)
	if err != nil {
		return nil, utils.NewFetchError(url, err)
	}

	file, err := f.ytdlp.DownloadAudio(ctx, "ytsearch1:"+query, "spotify")
	if err != nil {
		return nil, utils.NewFetchError(url, err)
	}
	file.Title = query
	return file, nil
}

func (f *SpotifyFetcher) Cleanup(file *models.MediaFile) error {
	return cleanup(file)
}

// trackQuery builds an "artist - title" search query from the track page.
func (f *SpotifyFetcher) trackQuery(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch track page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch track page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	return parseTrackQuery(string(body))
}

func parseTrackQuery(page string) (string, error) {
	titleMatch := ogTitlePattern.FindStringSubmatch(page)
	if len(titleMatch) < 2 {
		return "", fmt.Errorf("track title not found")
	}
	title := strings.TrimSpace(html.UnescapeString(titleMatch[1]))

	// og:description looks like "Artist · Song · 1987"
	if descMatch := ogDescriptionPattern.FindStringSubmatch(page); len(descMatch) > 1 {
		artist := strings.TrimSpace(strings.Split(html.UnescapeString(descMatch[1]), "·")[0])
		if artist != "" {
			return artist + " - " + title, nil
		}
	}

	return title, nil
}
