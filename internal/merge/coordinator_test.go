package merge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ryom080502-dev/OnseiGijiroku/internal/backend"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/session"
)

// fakeReconciler returns a canned response and counts calls.
type fakeReconciler struct {
	merged string
	err    error
	calls  int
	seen   []string
}

func (f *fakeReconciler) MergeSummaries(ctx context.Context, summaries []string) (string, error) {
	f.calls++
	f.seen = summaries
	if f.err != nil {
		return "", f.err
	}
	return f.merged, nil
}

func TestMergeEmptyInput(t *testing.T) {
	coordinator := NewCoordinator(&fakeReconciler{}, nil, nil)

	if _, err := coordinator.Merge(context.Background(), nil); err == nil {
		t.Fatal("Expected error for empty input")
	}
}

func TestMergeSingleResultSkipsNetwork(t *testing.T) {
	reconciler := &fakeReconciler{}
	coordinator := NewCoordinator(reconciler, nil, nil)

	input := backend.MinutesResult{Summary: "唯一の議事録", DynamicTitle: "タイトル"}
	result, err := coordinator.Merge(context.Background(), []backend.MinutesResult{input})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if result != input {
		t.Errorf("Single result must pass through unchanged, got %+v", result)
	}

	if reconciler.calls != 0 {
		t.Errorf("Expected no reconciliation call, got %d", reconciler.calls)
	}
}

func TestMergeReconciled(t *testing.T) {
	reconciler := &fakeReconciler{merged: "統合された議事録"}
	coordinator := NewCoordinator(reconciler, nil, nil)

	results := []backend.MinutesResult{
		{Summary: "前半", DynamicTitle: "最初のタイトル"},
		{Summary: "後半", DynamicTitle: "二番目のタイトル"},
	}

	merged, err := coordinator.Merge(context.Background(), results)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if merged.Summary != "統合された議事録" {
		t.Errorf("Unexpected summary %q", merged.Summary)
	}

	if merged.DynamicTitle != "最初のタイトル" {
		t.Errorf("Title must come from the first segment, got %q", merged.DynamicTitle)
	}

	if len(reconciler.seen) != 2 || reconciler.seen[0] != "前半" || reconciler.seen[1] != "後半" {
		t.Errorf("Summaries sent out of order: %v", reconciler.seen)
	}
}

func TestMergeFallbackOnBackendFailure(t *testing.T) {
	reconciler := &fakeReconciler{err: fmt.Errorf("backend exploded")}
	coordinator := NewCoordinator(reconciler, nil, nil)

	results := []backend.MinutesResult{
		{Summary: "part one", DynamicTitle: "title"},
		{Summary: "part two"},
		{Summary: "part three"},
	}

	merged, err := coordinator.Merge(context.Background(), results)
	if err != nil {
		t.Fatalf("Backend failure must degrade to concatenation, got error: %v", err)
	}

	expected := "part one" + FallbackDelimiter + "part two" + FallbackDelimiter + "part three"
	if merged.Summary != expected {
		t.Errorf("Expected fallback concatenation %q, got %q", expected, merged.Summary)
	}

	if merged.DynamicTitle != "title" {
		t.Errorf("Title must survive the fallback, got %q", merged.DynamicTitle)
	}
}

func TestMergeSessionExpiryPropagates(t *testing.T) {
	wrapped := fmt.Errorf("merge request: %w", session.ErrSessionExpired)
	reconciler := &fakeReconciler{err: wrapped}
	coordinator := NewCoordinator(reconciler, nil, nil)

	results := []backend.MinutesResult{
		{Summary: "a"},
		{Summary: "b"},
	}

	_, err := coordinator.Merge(context.Background(), results)
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Fatalf("Session expiry must not be swallowed by the fallback, got %v", err)
	}
}
