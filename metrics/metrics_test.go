package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistryIsSingleton(t *testing.T) {
	first := Default()
	second := Registry("ignored")
	assert.Same(t, first, second)
}

func TestAnalyticsEventsCounter(t *testing.T) {
	m := Default()
	before := testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("click"))
	m.AnalyticsEvents.WithLabelValues("click").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("click")))
}
