package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay bot
type Metrics struct {
	// Update handling
	MessagesTotal        prometheus.Counter
	ClassificationMisses prometheus.Counter
	LinksClassified      *prometheus.CounterVec

	// Media pipeline
	MediaSent       *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	MediaArchived   prometheus.Counter
	GifCommandsUsed *prometheus.CounterVec

	// Failures by error code
	Errors *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton registered with the default registry
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return DefaultMetrics
}

// NewMetrics creates all counters and histograms on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tgrelay_messages_total",
			Help: "Total number of messages received",
		}),
		ClassificationMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "tgrelay_classification_misses_total",
			Help: "Total number of text messages without a supported link",
		}),
		LinksClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgrelay_links_classified_total",
				Help: "Total number of recognised links by source",
			},
			[]string{"kind"},
		),
		MediaSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgrelay_media_sent_total",
				Help: "Total number of media messages delivered to chats",
			},
			[]string{"kind"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tgrelay_fetch_duration_seconds",
				Help:    "Time spent fetching or converting media",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		MediaArchived: factory.NewCounter(prometheus.CounterOpts{
			Name: "tgrelay_media_archived_total",
			Help: "Total number of media files copied to the archive bucket",
		}),
		GifCommandsUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgrelay_gif_commands_total",
				Help: "Total number of /gif commands by outcome",
			},
			[]string{"result"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgrelay_errors_total",
				Help: "Total number of handling errors by code",
			},
			[]string{"code"},
		),
	}
}
