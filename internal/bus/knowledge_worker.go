package bus

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// KnowledgeDraftJob is the payload published on a namespace's knowledge
// draft subject after a report_evaluate commits with a high enough score.
type KnowledgeDraftJob struct {
	Namespace     string `json:"namespace"`
	TaskID        string `json:"task_id"`
	TaskDetails   string `json:"task_details"`
	ReportResult  string `json:"report_result"`
	RequiredSkill string `json:"required_skill"`
}

// KnowledgeDrafter turns a job into a persisted knowledge document.
// internal/knowledge's Drafter, which cmd/taskhubd builds from a Summarizer
// and an OutlineClient, satisfies this.
type KnowledgeDrafter interface {
	Draft(ctx context.Context, job KnowledgeDraftJob) error
}

// StartKnowledgeDraftWorkers makes one queue-group subscription to subject
// that feeds a buffered channel, drained by workers goroutines that each
// invoke drafter.Draft. Failures are logged
// and never propagated — a flaky summarizer or document store must never
// block report evaluation, which already committed by the time a draft
// job runs.
func StartKnowledgeDraftWorkers(ctx context.Context, c *Client, subject string, workers int, drafter KnowledgeDrafter, logger *slog.Logger) (*nats.Subscription, error) {
	if workers <= 0 {
		workers = 4
	}

	jobs := make(chan KnowledgeDraftJob, workers*4)
	sub, err := QueueSubscribeJSON(c, subject, KnowledgeDraftQueueGroup, func(job KnowledgeDraftJob) {
		select {
		case jobs <- job:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}

	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-jobs:
					if err := drafter.Draft(ctx, job); err != nil {
						logger.Error("knowledge draft failed", "namespace", job.Namespace, "task_id", job.TaskID, "error", err)
					}
				}
			}
		}()
	}

	return sub, nil
}
