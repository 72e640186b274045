// StartReaperWorker is taskhub's Temporal worker entrypoint; it registers
// the reaper workflow and its scan activity on taskhub's own task queue.
package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// StartReaperWorker connects to Temporal and runs the reaper task queue
// worker, registering ReaperWorkflow and its ScanActivity. Blocks until the
// worker is interrupted.
func StartReaperWorker(registry *store.Registry, cfg config.Config) error {
	c, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		return fmt.Errorf("temporal: dial: %w", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	acts := &ReaperActivities{Registry: registry, Config: cfg.Reaper}
	w.RegisterWorkflow(ReaperWorkflow)
	w.RegisterActivity(acts.ScanActivity)

	return w.Run(worker.InterruptCh())
}
