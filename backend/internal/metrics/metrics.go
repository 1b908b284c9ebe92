// Package metrics exposes engine and HTTP measurements through Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics of the platform. It implements core.Recorder.
type Collector struct {
	registry *prometheus.Registry

	// Engine metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CreatedObjects    *prometheus.CounterVec
	DeletedObjects    *prometheus.CounterVec

	// Type cache metrics
	TypeCacheHits   prometheus.Counter
	TypeCacheMisses prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of engine operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Engine operation duration in seconds, transaction included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CreatedObjects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_created_total",
				Help:      "Total number of topics and associations created",
			},
			[]string{"kind"},
		),
		DeletedObjects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_deleted_total",
				Help:      "Total number of topics and associations deleted",
			},
			[]string{"kind"},
		),
		TypeCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "type_cache_hits_total",
				Help:      "Total number of type cache hits",
			},
		),
		TypeCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "type_cache_misses_total",
				Help:      "Total number of type cache misses",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.Operations,
		c.OperationDuration,
		c.CreatedObjects,
		c.DeletedObjects,
		c.TypeCacheHits,
		c.TypeCacheMisses,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveOperation records one finished engine operation
func (c *Collector) ObserveOperation(op, status string, d time.Duration) {
	c.Operations.WithLabelValues(op, status).Inc()
	c.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) TypeCacheHit()  { c.TypeCacheHits.Inc() }
func (c *Collector) TypeCacheMiss() { c.TypeCacheMisses.Inc() }

// ObjectsCreated adds n created objects of a kind
func (c *Collector) ObjectsCreated(kind string, n int) {
	c.CreatedObjects.WithLabelValues(kind).Add(float64(n))
}

// ObjectsDeleted adds n deleted objects of a kind
func (c *Collector) ObjectsDeleted(kind string, n int) {
	c.DeletedObjects.WithLabelValues(kind).Add(float64(n))
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
