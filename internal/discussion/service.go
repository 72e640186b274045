// Package discussion implements the namespace-wide append-only message
// log and per-hunter read watermarks.
package discussion

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/ids"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// epoch is the watermark used for a hunter that has never called MarkRead.
var epoch = time.Unix(0, 0).UTC()

// Post appends a message to the log.
func Post(ctx context.Context, tx store.Querier, hunterID, content string) (*domain.DiscussionMessage, error) {
	m := &domain.DiscussionMessage{
		ID:        ids.New("discussion"),
		HunterID:  hunterID,
		Content:   content,
		CreatedAt: ids.Now(),
	}
	if err := store.InsertDiscussionMessage(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("discussion post: %w", err)
	}
	return m, nil
}

// GetAfter returns messages strictly after the given timestamp, ascending,
// up to limit (0 means unlimited).
func GetAfter(ctx context.Context, q store.Querier, after time.Time, limit int) ([]*domain.DiscussionMessage, error) {
	return store.ListDiscussionMessagesAfter(ctx, q, &after, limit)
}

// GetLatest returns the newest limit messages, returned oldest-first.
func GetLatest(ctx context.Context, q store.Querier, limit int) ([]*domain.DiscussionMessage, error) {
	return store.ListDiscussionMessagesLatest(ctx, q, limit)
}

// MarkRead stamps hunterID's read watermark at now.
func MarkRead(ctx context.Context, tx store.Querier, hunterID string) error {
	h, err := store.GetHunter(ctx, tx, hunterID)
	if err != nil {
		return fmt.Errorf("discussion mark read: %w", err)
	}
	now := ids.Now()
	h.LastReadDiscussionTimestamp = &now
	h.UpdatedAt = now
	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return fmt.Errorf("discussion mark read: %w", err)
	}
	return nil
}

// Unread returns hunterID's unread feed: every message after its read
// watermark, or the whole log if it has never marked anything read.
func Unread(ctx context.Context, q store.Querier, hunterID string) ([]*domain.DiscussionMessage, error) {
	h, err := store.GetHunter(ctx, q, hunterID)
	if err != nil {
		return nil, fmt.Errorf("discussion unread: %w", err)
	}
	watermark := epoch
	if h.LastReadDiscussionTimestamp != nil {
		watermark = *h.LastReadDiscussionTimestamp
	}
	return store.ListDiscussionMessagesAfter(ctx, q, &watermark, 0)
}
