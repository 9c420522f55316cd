// Package metrics provides MetricsRecorder adapters: Prometheus for
// production and a no-op recorder for disabled or test configurations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// PrometheusMetricsRecorder records engine metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	requestsGeneratedTotal  *prometheus.CounterVec
	responsesGeneratedTotal *prometheus.CounterVec
	responseValidationTotal *prometheus.CounterVec
	metadataRefreshTotal    *prometheus.CounterVec
	correlationOpsTotal     *prometheus.CounterVec
	replaysDetectedTotal    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a recorder on the default
// Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a recorder on a custom
// registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	requestsGeneratedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eidas_node_requests_generated_total",
		Help: "Total authentication requests generated",
	}, []string{"instance", "result"})

	responsesGeneratedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eidas_node_responses_generated_total",
		Help: "Total authentication responses generated",
	}, []string{"instance", "result"})

	responseValidationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eidas_node_response_validations_total",
		Help: "Total response validation attempts",
	}, []string{"instance", "error_code"})

	metadataRefreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eidas_node_metadata_refresh_total",
		Help: "Total metadata fetch attempts",
	}, []string{"url", "result"})

	correlationOpsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eidas_node_correlation_ops_total",
		Help: "Total correlation cache operations",
	}, []string{"op", "result"})

	replaysDetectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eidas_node_replays_detected_total",
		Help: "Total replayed message ids rejected",
	}, []string{"country"})

	reg.MustRegister(
		requestsGeneratedTotal,
		responsesGeneratedTotal,
		responseValidationTotal,
		metadataRefreshTotal,
		correlationOpsTotal,
		replaysDetectedTotal,
	)

	return &PrometheusMetricsRecorder{
		requestsGeneratedTotal:  requestsGeneratedTotal,
		responsesGeneratedTotal: responsesGeneratedTotal,
		responseValidationTotal: responseValidationTotal,
		metadataRefreshTotal:    metadataRefreshTotal,
		correlationOpsTotal:     correlationOpsTotal,
		replaysDetectedTotal:    replaysDetectedTotal,
	}
}

// RecordRequestGenerated records an authentication request generation.
func (p *PrometheusMetricsRecorder) RecordRequestGenerated(instance string, success bool) {
	p.requestsGeneratedTotal.WithLabelValues(instance, resultLabel(success)).Inc()
}

// RecordResponseGenerated records an authentication response generation.
func (p *PrometheusMetricsRecorder) RecordResponseGenerated(instance string, success bool) {
	p.responsesGeneratedTotal.WithLabelValues(instance, resultLabel(success)).Inc()
}

// RecordResponseValidation records a response validation outcome.
func (p *PrometheusMetricsRecorder) RecordResponseValidation(instance string, errorCode string) {
	p.responseValidationTotal.WithLabelValues(instance, errorCode).Inc()
}

// RecordMetadataRefresh records a metadata fetch attempt.
func (p *PrometheusMetricsRecorder) RecordMetadataRefresh(url string, success bool) {
	p.metadataRefreshTotal.WithLabelValues(url, resultLabel(success)).Inc()
}

// RecordCorrelation records a correlation cache operation.
func (p *PrometheusMetricsRecorder) RecordCorrelation(op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.correlationOpsTotal.WithLabelValues(op, result).Inc()
}

// RecordReplayDetected records an anti-replay cache hit.
func (p *PrometheusMetricsRecorder) RecordReplayDetected(countryCode string) {
	p.replaysDetectedTotal.WithLabelValues(countryCode).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
