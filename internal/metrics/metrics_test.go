package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.MessagesTotal.Inc()
	m.MediaSent.WithLabelValues("video").Inc()
	m.MediaSent.WithLabelValues("video").Inc()
	m.Errors.WithLabelValues("FETCH_FAILURE").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.MediaSent.WithLabelValues("video")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("FETCH_FAILURE")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["tgrelay_messages_total"])
	assert.True(t, names["tgrelay_media_sent_total"])
	assert.True(t, names["tgrelay_errors_total"])
}

func TestGetDefaultMetricsIsSingleton(t *testing.T) {
	assert.Same(t, GetDefaultMetrics(), GetDefaultMetrics())
}
