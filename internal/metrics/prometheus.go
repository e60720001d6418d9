package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the upload pipeline
type Metrics struct {
	// Upload metrics
	UploadsStarted   prometheus.Counter
	UploadsSucceeded prometheus.Counter
	UploadsFailed    prometheus.Counter
	UploadDuration   prometheus.Histogram
	BytesUploaded    prometheus.Counter

	// Segmentation metrics
	SegmentsGenerated prometheus.Counter
	SegmentSize       prometheus.Histogram

	// Merge metrics
	MergeRequests  prometheus.Counter
	MergeFallbacks prometheus.Counter

	// Session metrics
	SessionExpiries prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		UploadsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_uploads_started_total",
			Help: "Total number of upload operations started",
		}),
		UploadsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_uploads_succeeded_total",
			Help: "Total number of upload operations completed successfully",
		}),
		UploadsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_uploads_failed_total",
			Help: "Total number of upload operations that aborted",
		}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gijiroku_upload_duration_seconds",
			Help:    "Duration of complete upload operations",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),
		BytesUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_bytes_uploaded_total",
			Help: "Total number of payload bytes uploaded",
		}),

		SegmentsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_segments_generated_total",
			Help: "Total number of audio segments generated",
		}),
		SegmentSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gijiroku_segment_size_bytes",
			Help:    "Size of encoded audio segments in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10), // 64KB to ~32MB
		}),

		MergeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_merge_requests_total",
			Help: "Total number of reconciliation requests sent",
		}),
		MergeFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_merge_fallbacks_total",
			Help: "Total number of merges recovered by local concatenation",
		}),

		SessionExpiries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gijiroku_session_expiries_total",
			Help: "Total number of detected session expiries",
		}),
	}
}

// RecordUploadStarted increments the uploads started counter
func (m *Metrics) RecordUploadStarted() {
	m.UploadsStarted.Inc()
}

// RecordUploadSucceeded records a completed upload and its duration
func (m *Metrics) RecordUploadSucceeded(durationSeconds float64) {
	m.UploadsSucceeded.Inc()
	m.UploadDuration.Observe(durationSeconds)
}

// RecordUploadFailed records an aborted upload and its duration
func (m *Metrics) RecordUploadFailed(durationSeconds float64) {
	m.UploadsFailed.Inc()
	m.UploadDuration.Observe(durationSeconds)
}

// RecordBytesUploaded adds to the uploaded payload byte counter
func (m *Metrics) RecordBytesUploaded(n int64) {
	m.BytesUploaded.Add(float64(n))
}

// RecordSegmentGenerated records one generated segment and its encoded size
func (m *Metrics) RecordSegmentGenerated(sizeBytes int) {
	m.SegmentsGenerated.Inc()
	m.SegmentSize.Observe(float64(sizeBytes))
}

// RecordMergeRequest increments the reconciliation request counter
func (m *Metrics) RecordMergeRequest() {
	m.MergeRequests.Inc()
}

// RecordMergeFallback increments the fallback concatenation counter
func (m *Metrics) RecordMergeFallback() {
	m.MergeFallbacks.Inc()
}

// RecordSessionExpiry increments the session expiry counter
func (m *Metrics) RecordSessionExpiry() {
	m.SessionExpiries.Inc()
}
