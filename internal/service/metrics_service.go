package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	documentsTotal  prometheus.Counter
	ocrRunsTotal    *prometheus.CounterVec
	reportJobsTotal *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	documentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "documents_uploaded_total",
		Help: "Total number of document versions stored",
	})

	ocrRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocr_runs_total",
		Help: "Total number of OCR extraction runs",
	}, []string{"outcome"})

	reportJobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_total",
		Help: "Total number of report jobs by terminal status",
	}, []string{"status"})

	registry.MustRegister(requestDuration, requestTotal, documentsTotal, ocrRunsTotal, reportJobsTotal)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		documentsTotal:  documentsTotal,
		ocrRunsTotal:    ocrRunsTotal,
		reportJobsTotal: reportJobsTotal,
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records latency and count for a handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// DocumentStored counts a persisted document version.
func (s *MetricsService) DocumentStored() {
	s.documentsTotal.Inc()
}

// OCRRun counts an OCR extraction with its outcome label.
func (s *MetricsService) OCRRun(outcome string) {
	s.ocrRunsTotal.WithLabelValues(outcome).Inc()
}

// ReportJobFinished counts a report job reaching a terminal status.
func (s *MetricsService) ReportJobFinished(status string) {
	s.reportJobsTotal.WithLabelValues(status).Inc()
}
