package metrics

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are
// disabled. All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordRequestGenerated is a no-op.
func (n *NoopMetricsRecorder) RecordRequestGenerated(instance string, success bool) {}

// RecordResponseGenerated is a no-op.
func (n *NoopMetricsRecorder) RecordResponseGenerated(instance string, success bool) {}

// RecordResponseValidation is a no-op.
func (n *NoopMetricsRecorder) RecordResponseValidation(instance string, errorCode string) {}

// RecordMetadataRefresh is a no-op.
func (n *NoopMetricsRecorder) RecordMetadataRefresh(url string, success bool) {}

// RecordCorrelation is a no-op.
func (n *NoopMetricsRecorder) RecordCorrelation(op string, hit bool) {}

// RecordReplayDetected is a no-op.
func (n *NoopMetricsRecorder) RecordReplayDetected(countryCode string) {}

var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
