// Package metrics defines the Prometheus instrumentation for the upload and
// merge pipeline.
package metrics
