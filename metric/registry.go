// Package metric manages Prometheus metric registration for AgentBridge
// components. It wraps a dedicated Prometheus registry so multiple engine
// instances can coexist in tests without collector collisions, and exposes
// core translation metrics shared by all components.
package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/agentbridge/errors"
)

// Registrar is the interface components use to register their metrics.
type Registrar interface {
	RegisterCounter(component, name string, c prometheus.Counter) error
	RegisterGauge(component, name string, g prometheus.Gauge) error
	RegisterHistogram(component, name string, h prometheus.Histogram) error
	RegisterCounterVec(component, name string, cv *prometheus.CounterVec) error
	RegisterGaugeVec(component, name string, gv *prometheus.GaugeVec) error
	RegisterHistogramVec(component, name string, hv *prometheus.HistogramVec) error
	Unregister(component, name string) bool
}

// Registry owns a Prometheus registry plus the core translation metrics.
type Registry struct {
	prom       *prometheus.Registry
	Core       *Core
	registered map[string]prometheus.Collector
	mu         sync.RWMutex
}

// NewRegistry creates a registry with core metrics and Go runtime collectors.
func NewRegistry() *Registry {
	r := &Registry{
		prom:       prometheus.NewRegistry(),
		registered: make(map[string]prometheus.Collector),
	}

	r.Core = NewCore()
	r.Core.register(r.prom)

	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

func (r *Registry) register(component, name string, c prometheus.Collector, op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	if _, exists := r.registered[key]; exists {
		return errors.Wrap(
			fmt.Errorf("metric %s already registered for component %s", name, component),
			"Registry", op, "duplicate registration")
	}

	if err := r.prom.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			return errors.Wrap(err, "Registry", op, fmt.Sprintf("prometheus conflict for %s", name))
		}
		return errors.Wrap(err, "Registry", op, "prometheus registration")
	}

	r.registered[key] = c
	return nil
}

// RegisterCounter registers a counter for a component.
func (r *Registry) RegisterCounter(component, name string, c prometheus.Counter) error {
	return r.register(component, name, c, "RegisterCounter")
}

// RegisterGauge registers a gauge for a component.
func (r *Registry) RegisterGauge(component, name string, g prometheus.Gauge) error {
	return r.register(component, name, g, "RegisterGauge")
}

// RegisterHistogram registers a histogram for a component.
func (r *Registry) RegisterHistogram(component, name string, h prometheus.Histogram) error {
	return r.register(component, name, h, "RegisterHistogram")
}

// RegisterCounterVec registers a counter vector for a component.
func (r *Registry) RegisterCounterVec(component, name string, cv *prometheus.CounterVec) error {
	return r.register(component, name, cv, "RegisterCounterVec")
}

// RegisterGaugeVec registers a gauge vector for a component.
func (r *Registry) RegisterGaugeVec(component, name string, gv *prometheus.GaugeVec) error {
	return r.register(component, name, gv, "RegisterGaugeVec")
}

// RegisterHistogramVec registers a histogram vector for a component.
func (r *Registry) RegisterHistogramVec(component, name string, hv *prometheus.HistogramVec) error {
	return r.register(component, name, hv, "RegisterHistogramVec")
}

// Unregister removes a previously registered metric. Returns true if the
// metric existed.
func (r *Registry) Unregister(component, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	c, exists := r.registered[key]
	if !exists {
		return false
	}
	delete(r.registered, key)
	return r.prom.Unregister(c)
}
