// Package temporal — ReaperWorkflow runs the stale-task scan as a
// Temporal-native workflow instead of a bare ticker goroutine, so a reaper
// pass survives process restarts and shows up in the Temporal UI. Designed
// to run on a Schedule at reaper.interval.
package temporal

import (
	"context"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/reaper"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// ReaperActivities holds the registry the reaper scan runs against.
type ReaperActivities struct {
	Registry *store.Registry
	Config   config.Reaper
}

// ScanActivity runs one reaper pass across every namespace the registry
// has open, outside any workflow-level transaction — each task transition
// is its own write, matching spec.md's reaper contract.
func (a *ReaperActivities) ScanActivity(ctx context.Context) ([]reaper.Result, error) {
	return reaper.ScanAll(ctx, a.Registry, a.Config)
}

// ReaperWorkflow runs a single reaper pass. Scheduled externally (e.g. via
// a Temporal Schedule at reaper.interval) rather than looping internally,
// so each pass is its own durable, independently-retried execution.
func ReaperWorkflow(ctx workflow.Context, _ struct{}) ([]reaper.Result, error) {
	logger := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &sdktemporal.RetryPolicy{MaximumAttempts: 3},
	}
	actCtx := workflow.WithActivityOptions(ctx, ao)

	var acts *ReaperActivities
	var results []reaper.Result
	if err := workflow.ExecuteActivity(actCtx, acts.ScanActivity).Get(ctx, &results); err != nil {
		logger.Error("reaper workflow: scan failed", "error", err)
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += r.Scanned
	}
	logger.Info("reaper workflow: pass complete", "namespaces", len(results), "reclaimed", total)
	return results, nil
}
