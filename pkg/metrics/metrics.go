// Package metrics exposes Prometheus collectors for the HTTP API, the query
// pipeline and background jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. All names are prefixed with "jansaakshi_".
//
//   - jansaakshi_http_requests_total{method,route,status}
//   - jansaakshi_http_request_duration_seconds{method,route}
//   - jansaakshi_query_answers_total{intent,stage,found}
//   - jansaakshi_ingest_jobs_total{result}
//   - jansaakshi_ingest_projects_total
//   - jansaakshi_reconcile_updates_total
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	QueryAnswers     *prometheus.CounterVec
	IngestJobs       *prometheus.CounterVec
	IngestedProjects prometheus.Counter
	ReconcileUpdates prometheus.Counter
}

// New creates collectors on a private registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := factory{reg}

	m := &Metrics{
		registry: reg,
		RequestsTotal: f.counterVec(prometheus.CounterOpts{
			Name: "jansaakshi_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, "method", "route", "status"),
		RequestDuration: f.histogramVec(prometheus.HistogramOpts{
			Name:    "jansaakshi_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, "method", "route"),
		QueryAnswers: f.counterVec(prometheus.CounterOpts{
			Name: "jansaakshi_query_answers_total",
			Help: "Answered questions by intent, search stage and whether records were found",
		}, "intent", "stage", "found"),
		IngestJobs: f.counterVec(prometheus.CounterOpts{
			Name: "jansaakshi_ingest_jobs_total",
			Help: "Finished ingestion jobs by result",
		}, "result"),
		IngestedProjects: f.counter(prometheus.CounterOpts{
			Name: "jansaakshi_ingest_projects_total",
			Help: "Projects written by ingestion",
		}),
		ReconcileUpdates: f.counter(prometheus.CounterOpts{
			Name: "jansaakshi_reconcile_updates_total",
			Help: "Project rows whose status was changed by reconciliation",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type factory struct {
	reg prometheus.Registerer
}

func (f factory) counterVec(opts prometheus.CounterOpts, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.reg.MustRegister(c)
	return c
}

func (f factory) histogramVec(opts prometheus.HistogramOpts, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.reg.MustRegister(h)
	return h
}

func (f factory) counter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	f.reg.MustRegister(c)
	return c
}
