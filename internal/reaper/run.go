package reaper

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// ScanAll fans out ScanNamespace across every namespace the registry has
// opened so far, one goroutine per namespace, and returns once they've all
// finished (or the first one fails).
func ScanAll(ctx context.Context, registry *store.Registry, cfg config.Reaper) ([]Result, error) {
	namespaces := registry.Namespaces()
	results := make([]Result, len(namespaces))

	g, ctx := errgroup.WithContext(ctx)
	for i, ns := range namespaces {
		i, ns := i, ns
		g.Go(func() error {
			s, err := registry.Get(ns)
			if err != nil {
				return err
			}
			res, err := ScanNamespace(ctx, ns, s, cfg)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunForever runs ScanAll on a ticker until ctx is canceled, logging each
// pass. It's the fallback path used when the Temporal worker isn't
// available; the Temporal workflow path (internal/temporal) is preferred
// when Temporal is configured since it gives retries and visibility for
// free.
func RunForever(ctx context.Context, registry *store.Registry, cfg config.Reaper, logger *slog.Logger) {
	interval := cfg.Interval.Duration
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := ScanAll(ctx, registry, cfg)
			if err != nil {
				logger.Error("reaper scan failed", "error", err)
				continue
			}
			for _, r := range results {
				if r.Scanned > 0 {
					logger.Info("reaper scan complete", "namespace", r.Namespace, "scanned", r.Scanned, "failed", r.Failed, "reassigned", r.Reassigned)
				}
			}
		}
	}
}
