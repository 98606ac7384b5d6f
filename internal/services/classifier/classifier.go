package classifier

import (
	"regexp"

	"github.com/denisAlshanov/tgrelay/internal/models"
)

// Rule matches one category of supported links.
type Rule struct {
	Name    string
	Kind    models.LinkKind
	Short   bool
	Pattern *regexp.Regexp
}

var (
	TikTokShortRule = Rule{
		Name:    "tiktok_short",
		Kind:    models.LinkKindTikTok,
		Short:   true,
		Pattern: regexp.MustCompile(`https://vm\.tiktok\.com/[A-Za-z0-9]+`),
	}
	TikTokLongRule = Rule{
		Name:    "tiktok_long",
		Kind:    models.LinkKindTikTok,
		Pattern: regexp.MustCompile(`https://www\.tiktok\.com/@[^/\s]+/video/[0-9]+`),
	}
	ReelRule = Rule{
		Name:    "instagram_reel",
		Kind:    models.LinkKindReel,
		Pattern: regexp.MustCompile(`https://www\.instagram\.com/reel/[A-Za-z0-9_-]+`),
	}
	SpotifyTrackRule = Rule{
		Name:    "spotify_track",
		Kind:    models.LinkKindSpotify,
		Pattern: regexp.MustCompile(`https://open\.spotify\.com/track/[A-Za-z0-9]+(\?si=[A-Za-z0-9]+)?`),
	}
)

// Precedence lists the rules from highest to lowest priority. When a message
// contains links of several categories, a Spotify track beats a Reel, which
// beats a canonical TikTok link, which beats a vm.tiktok.com short link.
var Precedence = []Rule{
	SpotifyTrackRule,
	ReelRule,
	TikTokLongRule,
	TikTokShortRule,
}

type Classifier struct {
	rules []Rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: Precedence}
}

// Classify returns the leftmost link of the highest priority category present in text.
func (c *Classifier) Classify(text string) (models.Link, bool) {
	for _, rule := range c.rules {
		if match := rule.Pattern.FindString(text); match != "" {
			return models.Link{
				Kind:  rule.Kind,
				URL:   match,
				Short: rule.Short,
			}, true
		}
	}
	return models.Link{}, false
}
