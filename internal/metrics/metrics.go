// Package metrics holds the Prometheus collectors for plugin discovery,
// library loading and buffer allocation. All methods are safe on a nil
// receiver so components may run without metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "accelrt"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Plugins instruments discovery and dynamic loading.
type Plugins struct {
	discovered prometheus.Counter
	loads      *prometheus.CounterVec
	closes     *prometheus.CounterVec
}

// NewPlugins creates plugin collectors and registers them on reg.
func NewPlugins(reg prometheus.Registerer) *Plugins {
	p := &Plugins{
		discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "discovered_total",
			Help:      "Total number of candidate plugin binaries found",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "load_total",
			Help:      "Total shared library open attempts by result",
		}, []string{"result"}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "close_total",
			Help:      "Total shared library close attempts by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(p.discovered, p.loads, p.closes)
	}
	return p
}

func (p *Plugins) Discovered(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.discovered.Add(float64(n))
}

func (p *Plugins) Load(err error) {
	if p == nil {
		return
	}
	p.loads.WithLabelValues(result(err)).Inc()
}

func (p *Plugins) Close(err error) {
	if p == nil {
		return
	}
	p.closes.WithLabelValues(result(err)).Inc()
}

// Buffers instruments buffer creation and live allocation count.
type Buffers struct {
	allocations *prometheus.CounterVec
	live        prometheus.Gauge
}

// NewBuffers creates buffer collectors and registers them on reg.
func NewBuffers(reg prometheus.Registerer) *Buffers {
	b := &Buffers{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "allocations_total",
			Help:      "Total tensor buffer allocations by memory type and result",
		}, []string{"type", "result"}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "live_allocations",
			Help:      "Tensor buffer allocations not yet freed",
		}),
	}
	if reg != nil {
		reg.MustRegister(b.allocations, b.live)
	}
	return b
}

func (b *Buffers) Allocated(bufferType string, err error) {
	if b == nil {
		return
	}
	b.allocations.WithLabelValues(bufferType, result(err)).Inc()
	if err == nil {
		b.live.Inc()
	}
}

func (b *Buffers) Freed() {
	if b == nil {
		return
	}
	b.live.Dec()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
