package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ryom080502-dev/OnseiGijiroku/internal/backend"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/metrics"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/session"
)

// FallbackDelimiter separates adjacent partial summaries when the
// reconciliation endpoint is unavailable and the texts are concatenated
// locally.
const FallbackDelimiter = "\n\n---\n\n"

// Reconciler submits ordered partial summaries to the backend and returns
// the reconciled narrative. *backend.Client satisfies it.
type Reconciler interface {
	MergeSummaries(ctx context.Context, summaries []string) (string, error)
}

// Coordinator combines per-segment results into one final result. Merge is
// never a hard failure point: a failed reconciliation degrades to
// deterministic local concatenation.
type Coordinator struct {
	reconciler Reconciler
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewCoordinator creates a coordinator around the given reconciler.
func NewCoordinator(reconciler Reconciler, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
	}
}

// Merge reconciles the ordered per-segment results into a single one. A
// single result is returned unchanged without any network call. The title is
// always inherited from the first segment; input order is load-bearing and
// must match segment index order.
func (c *Coordinator) Merge(ctx context.Context, results []backend.MinutesResult) (backend.MinutesResult, error) {
	if len(results) == 0 {
		return backend.MinutesResult{}, fmt.Errorf("no results to merge")
	}

	if len(results) == 1 {
		return results[0], nil
	}

	summaries := make([]string, len(results))
	for i, r := range results {
		summaries[i] = r.Summary
	}

	if c.metrics != nil {
		c.metrics.RecordMergeRequest()
	}

	merged, err := c.reconciler.MergeSummaries(ctx, summaries)
	if err != nil {
		// Session expiry still interrupts the pipeline; everything else is
		// recovered locally.
		if errors.Is(err, session.ErrSessionExpired) {
			return backend.MinutesResult{}, err
		}

		c.logger.Warn("Reconciliation failed, falling back to local concatenation",
			slog.Int("segments", len(results)),
			slog.String("error", err.Error()),
		)

		if c.metrics != nil {
			c.metrics.RecordMergeFallback()
		}

		merged = strings.Join(summaries, FallbackDelimiter)
	}

	return backend.MinutesResult{
		Summary:      merged,
		DynamicTitle: results[0].DynamicTitle,
	}, nil
}
