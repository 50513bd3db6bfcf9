package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docextract"

// PrometheusRecorder exports metrics on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	ocrDuration *prometheus.HistogramVec
	ocrPages    prometheus.Histogram
	llmDuration *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec
	projects    *prometheus.CounterVec
	apiKeys     prometheus.Counter
	credits     *prometheus.CounterVec
}

// NewPrometheus registers all collectors plus the Go and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	buckets := []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160}

	p := &PrometheusRecorder{
		registry: reg,
		ocrDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_request_duration_seconds",
			Help:      "Duration of OCR provider calls.",
			Buckets:   buckets,
		}, []string{"doc_type", "status"}),
		ocrPages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_pages",
			Help:      "Pages returned per successful OCR call.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM extraction calls.",
			Buckets:   buckets,
		}, []string{"status"}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_cache_lookups_total",
			Help:      "Project cache lookups by result.",
		}, []string{"result"}),
		projects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_total",
			Help:      "Project mutations by operation.",
		}, []string{"op"}),
		apiKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_keys_issued_total",
			Help:      "API keys issued.",
		}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_credits_total",
			Help:      "API credit operations by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.ocrDuration, p.ocrPages, p.llmDuration,
		p.cacheLookup, p.projects, p.apiKeys, p.credits,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) RecordOCR(docType string, pages int, d time.Duration, err error) {
	p.ocrDuration.WithLabelValues(docType, status(err)).Observe(d.Seconds())
	if err == nil {
		p.ocrPages.Observe(float64(pages))
	}
}

func (p *PrometheusRecorder) RecordLLM(d time.Duration, err error) {
	p.llmDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncProjectCacheHit()  { p.cacheLookup.WithLabelValues("hit").Inc() }
func (p *PrometheusRecorder) IncProjectCacheMiss() { p.cacheLookup.WithLabelValues("miss").Inc() }
func (p *PrometheusRecorder) IncProjectCreated()   { p.projects.WithLabelValues("create").Inc() }
func (p *PrometheusRecorder) IncProjectDeleted()   { p.projects.WithLabelValues("delete").Inc() }
func (p *PrometheusRecorder) IncAPIKeyIssued()     { p.apiKeys.Inc() }

func (p *PrometheusRecorder) IncCredit(outcome string) {
	p.credits.WithLabelValues(outcome).Inc()
}
