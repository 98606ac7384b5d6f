package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// LinkResolver expands shortened links to their canonical form.
type LinkResolver interface {
	Expand(ctx context.Context, shortURL string) (string, error)
}

type unshortenResponse struct {
	RequestedURL string `json:"requested_url"`
	ResolvedURL  string `json:"resolved_url"`
	Success      bool   `json:"success"`
}

// HTTPResolver asks an unshortening API for the target of a short link. With
// no API configured it reads the redirect target from the short link itself.
type HTTPResolver struct {
	apiURL     string
	httpClient *http.Client
}

func NewHTTPResolver(cfg *config.ResolverConfig) *HTTPResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HTTPResolver{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (r *HTTPResolver) Expand(ctx context.Context, shortURL string) (string, error) {
	var (
		longURL string
		err     error
	)
	if r.apiURL != "" {
		longURL, err = r.expandUsingAPI(ctx, shortURL)
	} else {
		longURL, err = r.expandUsingRedirect(ctx, shortURL)
	}
	if err != nil {
		return "", utils.NewResolutionError(shortURL, err)
	}
	return longURL, nil
}

func (r *HTTPResolver) expandUsingAPI(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+"/"+shortURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call expansion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("expansion API returned status %d", resp.StatusCode)
	}

	var payload unshortenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode expansion API response: %w", err)
	}

	if !payload.Success || payload.ResolvedURL == "" {
		return "", fmt.Errorf("expansion API could not resolve %s", shortURL)
	}

	return payload.ResolvedURL, nil
}

func (r *HTTPResolver) expandUsingRedirect(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request short URL: %w", err)
	}
	resp.Body.Close()

	location := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode >= 400 || location == "" {
		return "", fmt.Errorf("short URL did not redirect (status %d)", resp.StatusCode)
	}

	target, err := resp.Request.URL.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location: %w", err)
	}

	return stripQuery(target), nil
}

func stripQuery(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	return clean.String()
}
