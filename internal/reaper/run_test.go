package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/store"
)

func TestScanAllFansOutAcrossNamespaces(t *testing.T) {
	ctx := context.Background()
	registry := store.NewRegistry(t.TempDir())

	for _, ns := range []string{"alpha", "beta"} {
		s, err := registry.Get(ns)
		if err != nil {
			t.Fatalf("get %s: %v", ns, err)
		}
		claimStaleTask(t, ctx, s, 13*time.Hour)
	}

	cfg := config.Reaper{
		ClaimedTTL:    config.Duration{Duration: 12 * time.Hour},
		InProgressTTL: config.Duration{Duration: 24 * time.Hour},
		ClaimedPolicy: PolicyFail,
	}
	results, err := ScanAll(ctx, registry, cfg)
	if err != nil {
		t.Fatalf("scan all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected results for both namespaces, got %d", len(results))
	}
	for _, r := range results {
		if r.Failed != 1 {
			t.Fatalf("expected each namespace to reclaim 1 task, got %+v", r)
		}
	}
}
