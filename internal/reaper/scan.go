// Package reaper reclaims stale tasks: claimed tasks whose hunter never
// started them, and in_progress tasks whose hunter never reported back.
package reaper

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/hunter"
	"github.com/antigravity-dev/taskhub/internal/ids"
	"github.com/antigravity-dev/taskhub/internal/store"
	"github.com/antigravity-dev/taskhub/internal/task"
)

// PolicyFail marks a stale task failed in place.
const PolicyFail = "fail"

// PolicyReassign hands the task to the best other eligible hunter; when there
// is none, it clears the claim and returns the task to pending with a
// priority bump, instead of failing it outright.
const PolicyReassign = "reassign"

// Result tallies what a single namespace scan did.
type Result struct {
	Namespace  string
	Scanned    int
	Failed     int
	Reassigned int
}

// ScanNamespace reclaims every stale task in s, one independent write per
// task — this runs outside any caller transaction, matching spec.md's
// "each task transition is its own write" reaper contract.
func ScanNamespace(ctx context.Context, namespace string, s *store.Store, cfg config.Reaper) (Result, error) {
	res := Result{Namespace: namespace}
	now := ids.Now()
	claimedCutoff := store.FormatTime(now.Add(-cfg.ClaimedTTL.Duration))
	inProgressCutoff := store.FormatTime(now.Add(-cfg.InProgressTTL.Duration))

	stale, err := store.ListStaleTasks(ctx, s.DB(), claimedCutoff, inProgressCutoff)
	if err != nil {
		return res, fmt.Errorf("reaper scan %s: %w", namespace, err)
	}

	for _, t := range stale {
		underReassignPolicy := t.Status == domain.TaskClaimed && cfg.ClaimedPolicy == PolicyReassign
		if err := s.WithTx(ctx, func(tx *sql.Tx) error {
			return reclaim(ctx, tx, t, cfg)
		}); err != nil {
			return res, fmt.Errorf("reaper scan %s: reclaim task %s: %w", namespace, t.ID, err)
		}
		res.Scanned++
		if underReassignPolicy {
			res.Reassigned++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

// reclaim applies the configured policy to a single stale task. in_progress
// tasks always fail outright; claimed tasks fail or reassign depending on
// cfg.ClaimedPolicy. Under PolicyReassign, a claimed task is first re-offered
// to the best remaining eligible hunter (excluding the current claimant) per
// task_escalation_service.py; only when none exists is it un-assigned and
// bumped back into the pending pool.
func reclaim(ctx context.Context, tx *sql.Tx, t *domain.Task, cfg config.Reaper) error {
	now := ids.Now()

	if t.Status == domain.TaskInProgress || cfg.ClaimedPolicy != PolicyReassign {
		t.Status = domain.TaskFailed
		t.UpdatedAt = now
		return store.UpdateTask(ctx, tx, t)
	}

	var exclude []string
	if t.HunterID != nil {
		exclude = []string{*t.HunterID}
	}
	candidate, err := hunter.FindBestHunterForTask(ctx, tx, t.RequiredSkill, exclude)
	if err != nil {
		return fmt.Errorf("reclaim task %s: %w", t.ID, err)
	}
	if candidate != nil {
		oldHunterID := t.HunterID
		leaseID := ids.New("lease")
		expires := now.Add(task.LeaseDuration)

		t.HunterID = &candidate.ID
		t.LeaseID = &leaseID
		t.LeaseExpiresAt = &expires
		t.UpdatedAt = now
		if err := store.UpdateTask(ctx, tx, t); err != nil {
			return fmt.Errorf("reclaim task %s: %w", t.ID, err)
		}

		candidate.CurrentTasks = appendCurrentTask(candidate.CurrentTasks, t.ID)
		candidate.UpdatedAt = now
		if err := store.UpdateHunter(ctx, tx, candidate); err != nil {
			return fmt.Errorf("reclaim task %s: %w", t.ID, err)
		}

		if oldHunterID != nil {
			old, err := store.GetHunter(ctx, tx, *oldHunterID)
			if err != nil {
				return fmt.Errorf("reclaim task %s: %w", t.ID, err)
			}
			old.CurrentTasks = removeCurrentTask(old.CurrentTasks, t.ID)
			old.UpdatedAt = now
			if err := store.UpdateHunter(ctx, tx, old); err != nil {
				return fmt.Errorf("reclaim task %s: %w", t.ID, err)
			}
		}
		return nil
	}

	oldHunterID := t.HunterID
	t.Status = domain.TaskPending
	t.HunterID = nil
	t.LeaseID = nil
	t.LeaseExpiresAt = nil
	t.Priority += cfg.PriorityBump
	t.UpdatedAt = now
	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return fmt.Errorf("reclaim task %s: %w", t.ID, err)
	}

	if oldHunterID != nil {
		old, err := store.GetHunter(ctx, tx, *oldHunterID)
		if err != nil {
			return fmt.Errorf("reclaim task %s: %w", t.ID, err)
		}
		old.CurrentTasks = removeCurrentTask(old.CurrentTasks, t.ID)
		old.UpdatedAt = now
		if err := store.UpdateHunter(ctx, tx, old); err != nil {
			return fmt.Errorf("reclaim task %s: %w", t.ID, err)
		}
	}
	return nil
}

func appendCurrentTask(tasks []string, taskID string) []string {
	for _, id := range tasks {
		if id == taskID {
			return tasks
		}
	}
	return append(tasks, taskID)
}

func removeCurrentTask(tasks []string, taskID string) []string {
	out := make([]string, 0, len(tasks))
	for _, id := range tasks {
		if id != taskID {
			out = append(out, id)
		}
	}
	return out
}
