package main

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/pagealloc"
	"github.com/hupe1980/pagealloc/internal/arena"
)

// promMetrics implements pagealloc.MetricsCollector.
type promMetrics struct {
	allocs    *prometheus.CounterVec
	allocSize *prometheus.HistogramVec
	frees     *prometheus.CounterVec
	reclaimed prometheus.Counter
	arenas    *prometheus.CounterVec
	sealed    *prometheus.CounterVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		allocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagealloc_allocs_total",
			Help: "Allocations by size class and status",
		}, []string{"class", "status"}),
		allocSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagealloc_alloc_size_bytes",
			Help:    "Requested allocation sizes",
			Buckets: prometheus.ExponentialBuckets(8, 4, 10),
		}, []string{"class"}),
		frees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagealloc_frees_total",
			Help: "Releases by size class",
		}, []string{"class"}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagealloc_pages_reclaimed_total",
			Help: "Regions returned to the operating system",
		}),
		arenas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagealloc_arenas_created_total",
			Help: "Arena pages mapped by size class",
		}, []string{"class"}),
		sealed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagealloc_arenas_sealed_total",
			Help: "Arenas retired by heap close or cleanup, by size class",
		}, []string{"class"}),
	}

	outstanding := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pagealloc_outstanding_pages",
		Help: "Regions currently mapped",
	}, func() float64 {
		return float64(pagealloc.OutstandingPages())
	})

	reg.MustRegister(m.allocs, m.allocSize, m.frees, m.reclaimed, m.arenas, m.sealed, outstanding)
	return m
}

func classLabel(class int) string {
	if class == pagealloc.LargeClass {
		return "large"
	}
	return strconv.Itoa(int(arena.Classes[class]))
}

func (m *promMetrics) RecordAlloc(class int, size uintptr, err error) {
	label := classLabel(class)
	status := "success"
	if err != nil {
		status = "error"
	}
	m.allocs.WithLabelValues(label, status).Inc()
	if err == nil {
		m.allocSize.WithLabelValues(label).Observe(float64(size))
	}
}

func (m *promMetrics) RecordFree(class int, reclaimed bool) {
	m.frees.WithLabelValues(classLabel(class)).Inc()
	if reclaimed {
		m.reclaimed.Inc()
	}
}

func (m *promMetrics) RecordArenaCreated(class int) {
	m.arenas.WithLabelValues(classLabel(class)).Inc()
}

func (m *promMetrics) RecordSeal(class int, reclaimed bool) {
	m.sealed.WithLabelValues(classLabel(class)).Inc()
	if reclaimed {
		m.reclaimed.Inc()
	}
}
