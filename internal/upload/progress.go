package upload

// ProgressSink receives user-facing progress updates from the orchestrator.
// Reset returns the indicator to its idle, retryable state after an abort.
type ProgressSink interface {
	Report(percent int, message string)
	Reset()
}

// NopSink discards all progress updates.
type NopSink struct{}

// Report implements ProgressSink.
func (NopSink) Report(percent int, message string) {}

// Reset implements ProgressSink.
func (NopSink) Reset() {}
