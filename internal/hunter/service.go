// Package hunter implements hunter registration, skill growth, reputation
// adjustment, and the best-match candidate search used by the report and
// reaper services.
package hunter

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/ids"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// KnowledgeTagLookup fetches the skill tags attached to a knowledge item.
// internal/knowledge supplies the real implementation; kept as an interface
// here to avoid a hunter → knowledge import cycle (knowledge draft creation
// eventually references hunters, not the other way round).
type KnowledgeTagLookup interface {
	Tags(ctx context.Context, knowledgeID string) ([]string, error)
}

// Register upserts a hunter: merges supplied skills into the existing set by
// max-wins (never decreases a skill), or creates the hunter if absent.
func Register(ctx context.Context, tx store.Querier, hunterID string, skills map[string]int) (*domain.Hunter, error) {
	h, err := store.GetHunter(ctx, tx, hunterID)
	if domain.KindOf(err) == domain.KindNotFound {
		now := ids.Now()
		h = &domain.Hunter{
			ID:        hunterID,
			Skills:    map[string]int{},
			Status:    domain.HunterActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for k, v := range skills {
			h.Skills[k] = v
		}
		if err := store.InsertHunter(ctx, tx, h); err != nil {
			return nil, err
		}
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hunter register: %w", err)
	}

	for k, v := range skills {
		if existing, ok := h.Skills[k]; ok {
			if v > existing {
				h.Skills[k] = v
			}
		} else {
			h.Skills[k] = v
		}
	}
	h.UpdatedAt = ids.Now()

	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Study grows a hunter's skills by the tags on a knowledge item: each tag's
// skill is bumped by 5, capped at 100; a new tag starts at 5.
func Study(ctx context.Context, tx store.Querier, lookup KnowledgeTagLookup, hunterID, knowledgeID string) (*domain.Hunter, error) {
	h, err := store.GetHunter(ctx, tx, hunterID)
	if err != nil {
		return nil, fmt.Errorf("hunter study: %w", err)
	}

	tags, err := lookup.Tags(ctx, knowledgeID)
	if err != nil {
		return nil, fmt.Errorf("hunter study: %w", err)
	}

	for _, tag := range tags {
		h.Skills[tag] = min(100, h.Skills[tag]+5)
	}
	h.UpdatedAt = ids.Now()

	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// AdjustReputation directly sets a hunter's reputation. Admin-triggered only;
// never called automatically by any core operation.
func AdjustReputation(ctx context.Context, tx store.Querier, hunterID string, newReputation int) (*domain.Hunter, error) {
	h, err := store.GetHunter(ctx, tx, hunterID)
	if err != nil {
		return nil, fmt.Errorf("adjust reputation: %w", err)
	}
	h.Reputation = newReputation
	h.UpdatedAt = ids.Now()
	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// FindBestHunterForTask returns the highest-scoring eligible hunter for
// skill, or nil if none qualify. Score is 0.7*reputation - 0.3*len(current
// tasks); ties break on the lexicographically smaller ID so results stay
// deterministic within a process run.
func FindBestHunterForTask(ctx context.Context, q store.Querier, skill string, excludeIDs []string) (*domain.Hunter, error) {
	exclude := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = true
	}

	candidates, err := store.ListActiveHuntersWithSkill(ctx, q, skill, exclude)
	if err != nil {
		return nil, fmt.Errorf("find best hunter: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	bestScore := score(best)
	for _, h := range candidates[1:] {
		s := score(h)
		if s > bestScore || (s == bestScore && h.ID < best.ID) {
			best = h
			bestScore = s
		}
	}
	return best, nil
}

func score(h *domain.Hunter) float64 {
	return 0.7*float64(h.Reputation) - 0.3*float64(len(h.CurrentTasks))
}

// List returns every hunter in the namespace.
func List(ctx context.Context, q store.Querier) ([]*domain.Hunter, error) {
	return store.ListHunters(ctx, q)
}
