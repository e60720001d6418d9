package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryom080502-dev/OnseiGijiroku/internal/audio"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/backend"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/metrics"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/session"
)

// Strategy selects how a file reaches the backend. It is resolved exactly
// once per file, before any network call.
type Strategy int

const (
	// StrategyDirect sends the whole file in one request to the backend.
	StrategyDirect Strategy = iota
	// StrategySigned writes the file to storage via a signed URL, then asks
	// the backend to process the resident blob.
	StrategySigned
	// StrategySegmented decomposes the recording locally and uploads one
	// direct request per segment, for backends without storage offload.
	StrategySegmented
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategySigned:
		return "signed"
	case StrategySegmented:
		return "segmented"
	}
	return "unknown"
}

// ErrProcessTimeout marks a processing notification that did not finish
// within its deadline, distinct from a generic backend failure.
var ErrProcessTimeout = errors.New("minutes generation timed out")

// Config contains orchestrator tuning
type Config struct {
	// DirectLimitBytes is the backend-imposed ceiling for a single direct
	// request. Files at or below it go direct; equality is inclusive.
	DirectLimitBytes int64
	// SegmentSeconds is the nominal duration of one locally produced segment.
	SegmentSeconds float64
	// ProcessTimeout bounds the signed-strategy processing notification.
	ProcessTimeout time.Duration
	// SegmentedMode replaces the signed strategy with local decomposition
	// for backends without storage offload.
	SegmentedMode bool
}

// Orchestrator drives a complete upload: strategy selection, execution with
// progress reporting, and per-segment result collection.
type Orchestrator struct {
	config  Config
	backend *backend.Client
	metrics *metrics.Metrics
	logger  *slog.Logger

	// decode turns a media file into raw PCM for the segmented strategy.
	decode func(ctx context.Context, path string) (*audio.DecodedAudio, error)
}

// NewOrchestrator creates an orchestrator around the backend client.
func NewOrchestrator(config Config, client *backend.Client, m *metrics.Metrics, logger *slog.Logger) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client cannot be nil")
	}

	if config.DirectLimitBytes <= 0 {
		config.DirectLimitBytes = 30 * 1024 * 1024
	}

	if config.SegmentSeconds <= 0 {
		config.SegmentSeconds = audio.DefaultSegmentSeconds
	}

	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = 15 * time.Minute
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		config:  config,
		backend: client,
		metrics: m,
		logger:  logger,
		decode:  audio.DecodeFile,
	}, nil
}

// ChooseStrategy resolves the upload strategy from the file size and the
// backend's direct-request ceiling.
func (o *Orchestrator) ChooseStrategy(sizeBytes int64) Strategy {
	if sizeBytes <= o.config.DirectLimitBytes {
		return StrategyDirect
	}

	if o.config.SegmentedMode {
		return StrategySegmented
	}

	return StrategySigned
}

// Upload executes the resolved strategy for one file and returns the
// ordered per-unit results. Any failure aborts the whole operation: no
// partial results are returned, the first error wins, and the progress sink
// is reset to its retryable state.
func (o *Orchestrator) Upload(ctx context.Context, file *File, meta backend.Metadata, sink ProgressSink) ([]backend.MinutesResult, error) {
	if sink == nil {
		sink = NopSink{}
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordUploadStarted()
	}

	strategy := o.ChooseStrategy(file.SizeBytes)
	o.logger.Info("Upload strategy resolved",
		slog.String("file", file.Name),
		slog.Int64("size_bytes", file.SizeBytes),
		slog.String("strategy", strategy.String()),
	)

	results, err := o.run(ctx, strategy, file, meta, sink)
	if err != nil {
		sink.Reset()
		if o.metrics != nil {
			o.metrics.RecordUploadFailed(time.Since(start).Seconds())
			if errors.Is(err, session.ErrSessionExpired) {
				o.metrics.RecordSessionExpiry()
			}
		}
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.RecordUploadSucceeded(time.Since(start).Seconds())
	}

	sink.Report(100, "議事録の生成が完了しました")
	return results, nil
}

func (o *Orchestrator) run(ctx context.Context, strategy Strategy, file *File, meta backend.Metadata, sink ProgressSink) ([]backend.MinutesResult, error) {
	switch strategy {
	case StrategyDirect:
		result, err := o.uploadDirect(ctx, file, meta, sink)
		if err != nil {
			return nil, err
		}
		return []backend.MinutesResult{*result}, nil

	case StrategySigned:
		result, err := o.uploadSigned(ctx, file, meta, sink)
		if err != nil {
			return nil, err
		}
		return []backend.MinutesResult{*result}, nil

	case StrategySegmented:
		return o.uploadSegmented(ctx, file, meta, sink)
	}

	return nil, fmt.Errorf("unknown upload strategy %d", strategy)
}

// uploadDirect sends the whole file in a single request; the backend handles
// any internal chunking.
func (o *Orchestrator) uploadDirect(ctx context.Context, file *File, meta backend.Metadata, sink ProgressSink) (*backend.MinutesResult, error) {
	payload, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open media file: %w", err)
	}
	defer payload.Close()

	sink.Report(10, "アップロードを開始しました...")
	sink.Report(50, "音声を処理しています...")

	result, err := o.backend.UploadMedia(ctx, file.Name, file.ContentType, payload, meta)
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.RecordBytesUploaded(file.SizeBytes)
	}

	return result, nil
}

// uploadSigned runs the three-step signed flow: acquire a write handle,
// transfer the bytes straight to storage, then notify the backend. The
// storage transfer is terminal on failure and the notification never happens
// after it fails.
func (o *Orchestrator) uploadSigned(ctx context.Context, file *File, meta backend.Metadata, sink ProgressSink) (*backend.MinutesResult, error) {
	ticket, err := o.backend.GenerateUploadURL(ctx, file.Name, file.ContentType)
	if err != nil {
		return nil, err
	}
	sink.Report(5, "アップロード先を取得しました")

	payload, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open media file: %w", err)
	}

	err = o.backend.UploadToStorage(ctx, ticket.UploadURL, file.ContentType, payload, file.SizeBytes)
	payload.Close()
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.RecordBytesUploaded(file.SizeBytes)
	}

	sink.Report(30, "ストレージへのアップロードが完了しました")
	sink.Report(40, "議事録を生成しています...")

	procCtx, cancel := context.WithTimeout(ctx, o.config.ProcessTimeout)
	defer cancel()

	result, err := o.backend.ProcessBlob(procCtx, ticket.BlobName, meta)
	if err != nil {
		if procCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: backend did not answer within %s", ErrProcessTimeout, o.config.ProcessTimeout)
		}
		return nil, err
	}

	return result, nil
}

// uploadSegmented decodes the recording, partitions it into fixed-duration
// segments, and uploads each one as an independent direct request in strict
// index order. Progress moves through the 10-70 band proportionally.
func (o *Orchestrator) uploadSegmented(ctx context.Context, file *File, meta backend.Metadata, sink ProgressSink) ([]backend.MinutesResult, error) {
	sink.Report(5, "音声を解析しています...")

	decoded, err := o.decode(ctx, file.Path)
	if err != nil {
		return nil, err
	}

	segments, err := audio.SegmentAudio(decoded, o.config.SegmentSeconds)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Recording segmented",
		slog.Int("segments", len(segments)),
		slog.Float64("duration_seconds", decoded.DurationSeconds),
		slog.Int("source_sample_rate", decoded.SampleRate),
	)

	results := make([]backend.MinutesResult, 0, len(segments))
	for _, seg := range segments {
		if o.metrics != nil {
			o.metrics.RecordSegmentGenerated(seg.ApproxSizeBytes)
		}

		result, err := o.backend.UploadMedia(ctx, segmentName(file.Name, seg.Index), "audio/wav", bytes.NewReader(seg.WAVBytes), meta)
		if err != nil {
			return nil, fmt.Errorf("failed to process segment %d: %w", seg.Index, err)
		}

		if o.metrics != nil {
			o.metrics.RecordBytesUploaded(int64(seg.ApproxSizeBytes))
		}

		percent := 10 + (seg.Index+1)*60/len(segments)
		sink.Report(percent, fmt.Sprintf("セグメント %d/%d を処理しました", seg.Index+1, len(segments)))

		results = append(results, *result)
	}

	return results, nil
}

// segmentName derives the per-segment upload filename from the source name.
func segmentName(sourceName string, index int) string {
	base := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	return fmt.Sprintf("%s_part%03d.wav", base, index+1)
}
