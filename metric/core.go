package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Core contains the translation metrics every deployment exports regardless
// of which optional component metrics are enabled.
type Core struct {
	TranslationsTotal   *prometheus.CounterVec
	TranslationDuration *prometheus.HistogramVec
	ConfidenceScore     *prometheus.HistogramVec
	FallbacksApplied    *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	QueueDepth          *prometheus.GaugeVec
	DeadLetterTotal     *prometheus.CounterVec
	NATSConnected       prometheus.Gauge
}

// NewCore creates the core metric set.
func NewCore() *Core {
	return &Core{
		TranslationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentbridge",
				Subsystem: "translation",
				Name:      "total",
				Help:      "Total translations by direction and status",
			},
			[]string{"direction", "status"},
		),

		TranslationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agentbridge",
				Subsystem: "translation",
				Name:      "duration_seconds",
				Help:      "Translation latency excluding cache hits",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"direction"},
		),

		ConfidenceScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agentbridge",
				Subsystem: "translation",
				Name:      "confidence",
				Help:      "Confidence score distribution per direction",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
			[]string{"direction"},
		),

		FallbacksApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentbridge",
				Subsystem: "translation",
				Name:      "fallbacks_total",
				Help:      "Capability-gap fallbacks applied by strategy name",
			},
			[]string{"strategy"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentbridge",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by serving tier (l1, l2, l3, miss)",
			},
			[]string{"tier"},
		),

		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "agentbridge",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Queued entries per translation direction",
			},
			[]string{"direction"},
		),

		DeadLetterTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentbridge",
				Subsystem: "queue",
				Name:      "dead_letter_total",
				Help:      "Entries moved to the dead-letter store",
			},
			[]string{"direction"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "agentbridge",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Core) register(reg *prometheus.Registry) {
	reg.MustRegister(
		c.TranslationsTotal,
		c.TranslationDuration,
		c.ConfidenceScore,
		c.FallbacksApplied,
		c.CacheLookups,
		c.QueueDepth,
		c.DeadLetterTotal,
		c.NATSConnected,
	)
}
