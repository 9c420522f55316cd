package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusRecorder for production,
// NoopRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordRequestGenerated records an authentication request generation.
	RecordRequestGenerated(instance string, success bool)

	// RecordResponseGenerated records an authentication response generation.
	RecordResponseGenerated(instance string, success bool)

	// RecordResponseValidation records a response validation outcome.
	// errorCode is empty on success.
	RecordResponseValidation(instance string, errorCode string)

	// RecordMetadataRefresh records a metadata fetch attempt for a URL.
	RecordMetadataRefresh(url string, success bool)

	// RecordCorrelation records a correlation cache operation.
	RecordCorrelation(op string, hit bool)

	// RecordReplayDetected records an anti-replay cache hit.
	RecordReplayDetected(countryCode string)
}
