package knowledge

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/taskhub/internal/bus"
)

// Drafter composes a Summarizer and an OutlineClient into the post-commit
// knowledge-draft job handler: summarize, then persist as an Outline
// document in the configured collection. It implements bus.KnowledgeDrafter.
type Drafter struct {
	Summarizer   Summarizer
	Outline      *OutlineClient
	CollectionID string
}

// Draft turns a bus.KnowledgeDraftJob into a persisted Outline document.
// Summarization never errors (it degrades to the failure sentinel
// internally); only the Outline write can fail here.
func (d *Drafter) Draft(ctx context.Context, job bus.KnowledgeDraftJob) error {
	title, content := d.Summarizer.Summarize(ctx, job.TaskDetails, job.ReportResult)

	if _, err := d.Outline.CreateDocument(ctx, d.CollectionID, title, content, false); err != nil {
		return fmt.Errorf("knowledge draft: %w", err)
	}
	return nil
}
