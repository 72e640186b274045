// Package task implements the task lifecycle finite-state machine: publish,
// claim, start, complete, list, archive, delete.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/ids"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// LeaseDuration is the claim lease window. The reaper picks stale tasks by
// updated_at age rather than by lease expiry, and renews the lease to this
// window when it reassigns a task.
const LeaseDuration = time.Hour

// Publish creates a new pending task. publisherID must reference an
// existing hunter unless it is domain.SystemHunterID, which always gets
// priority 0 and skips the existence check.
func Publish(ctx context.Context, tx store.Querier, publisherID, name, details, requiredSkill string, dependsOn []string, taskType domain.TaskType) (*domain.Task, error) {
	priority := 0
	if publisherID != domain.SystemHunterID {
		publisher, err := store.GetHunter(ctx, tx, publisherID)
		if err != nil {
			return nil, fmt.Errorf("task publish: %w", err)
		}
		priority = publisher.Reputation / 10
	}

	if taskType == "" {
		taskType = domain.TaskNormal
	}
	if dependsOn == nil {
		dependsOn = []string{}
	}

	now := ids.Now()
	t := &domain.Task{
		ID:                  ids.New("task"),
		Name:                name,
		Details:             details,
		RequiredSkill:       requiredSkill,
		Status:              domain.TaskPending,
		Priority:            priority,
		TaskType:            taskType,
		PublishedByHunterID: &publisherID,
		DependsOn:           dependsOn,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := store.InsertTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("task publish: %w", err)
	}
	return t, nil
}

// Claim atomically transitions a pending task to claimed, assigning the
// claiming hunter a fresh lease.
func Claim(ctx context.Context, tx store.Querier, taskID, hunterID string) (*domain.Task, error) {
	t, err := store.GetTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TaskPending {
		return nil, domain.Wrap(domain.KindState, fmt.Sprintf("task %s is not pending", taskID), domain.ErrState)
	}
	if t.PublishedByHunterID != nil && *t.PublishedByHunterID == hunterID {
		return nil, domain.Wrap(domain.KindSelfClaim, "hunter cannot claim its own published task", domain.ErrSelfClaim)
	}

	h, err := store.GetHunter(ctx, tx, hunterID)
	if err != nil {
		return nil, fmt.Errorf("task claim: %w", err)
	}
	if _, hasSkill := h.Skills[t.RequiredSkill]; !hasSkill {
		return nil, domain.Wrap(domain.KindSkill, fmt.Sprintf("hunter %s lacks skill %s", hunterID, t.RequiredSkill), domain.ErrSkill)
	}

	now := ids.Now()
	leaseID := ids.New("lease")
	expires := now.Add(LeaseDuration)

	t.Status = domain.TaskClaimed
	t.HunterID = &hunterID
	t.LeaseID = &leaseID
	t.LeaseExpiresAt = &expires
	t.UpdatedAt = now

	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("task claim: %w", err)
	}

	h.CurrentTasks = appendTask(h.CurrentTasks, taskID)
	h.UpdatedAt = now
	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return nil, fmt.Errorf("task claim: %w", err)
	}

	return t, nil
}

// Start transitions a claimed task, owned by hunterID, to in_progress,
// clearing the claim lease (leases are only meaningful while claimed).
func Start(ctx context.Context, tx store.Querier, taskID, hunterID string) (*domain.Task, error) {
	t, err := store.GetTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if t.HunterID == nil || *t.HunterID != hunterID {
		return nil, domain.Wrap(domain.KindOwner, fmt.Sprintf("task %s is not claimed by hunter %s", taskID, hunterID), domain.ErrOwner)
	}
	if t.Status != domain.TaskClaimed {
		return nil, domain.Wrap(domain.KindState, fmt.Sprintf("task %s is not claimed", taskID), domain.ErrState)
	}

	t.Status = domain.TaskInProgress
	t.LeaseID = nil
	t.LeaseExpiresAt = nil
	t.UpdatedAt = ids.Now()

	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("task start: %w", err)
	}
	return t, nil
}

// Complete transitions an in_progress task, owned by hunterID, to its
// terminal status (completed or failed), records result, and moves the
// task out of the hunter's current_tasks into its completed/failed tally.
func Complete(ctx context.Context, tx store.Querier, taskID, hunterID string, result *string, finalStatus domain.TaskStatus) (*domain.Task, error) {
	if finalStatus != domain.TaskCompleted && finalStatus != domain.TaskFailed {
		return nil, domain.Wrap(domain.KindState, fmt.Sprintf("invalid final status %s", finalStatus), domain.ErrState)
	}

	t, err := store.GetTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if t.HunterID == nil || *t.HunterID != hunterID {
		return nil, domain.Wrap(domain.KindOwner, fmt.Sprintf("task %s is not claimed by hunter %s", taskID, hunterID), domain.ErrOwner)
	}
	if t.Status != domain.TaskInProgress {
		return nil, domain.Wrap(domain.KindState, fmt.Sprintf("task %s is not in progress", taskID), domain.ErrState)
	}

	now := ids.Now()
	t.Status = finalStatus
	t.Result = result
	t.UpdatedAt = now

	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("task complete: %w", err)
	}

	h, err := store.GetHunter(ctx, tx, hunterID)
	if err != nil {
		return nil, fmt.Errorf("task complete: %w", err)
	}
	h.CurrentTasks = removeTask(h.CurrentTasks, taskID)
	if finalStatus == domain.TaskCompleted {
		h.CompletedTasks++
	} else {
		h.FailedTasks++
	}
	h.UpdatedAt = now
	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return nil, fmt.Errorf("task complete: %w", err)
	}

	return t, nil
}

// List returns tasks matching every supplied filter field.
func List(ctx context.Context, q store.Querier, filter domain.TaskFilter) ([]*domain.Task, error) {
	return store.ListTasks(ctx, q, filter)
}

// Archive transitions a terminal task (completed or failed) to archived.
func Archive(ctx context.Context, tx store.Querier, taskID string) (*domain.Task, error) {
	t, err := store.GetTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TaskCompleted && t.Status != domain.TaskFailed {
		return nil, domain.Wrap(domain.KindState, fmt.Sprintf("task %s must be completed or failed to archive", taskID), domain.ErrState)
	}

	t.Status = domain.TaskArchived
	t.IsArchived = true
	t.UpdatedAt = ids.Now()

	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("task archive: %w", err)
	}
	return t, nil
}

// Delete hard-deletes a task. Unless force is set, deleting a claimed task
// is refused so an active claim is never silently discarded.
func Delete(ctx context.Context, tx store.Querier, taskID string, force bool) error {
	t, err := store.GetTask(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if !force && t.Status == domain.TaskClaimed {
		return domain.Wrap(domain.KindState, fmt.Sprintf("task %s is claimed; pass force to delete anyway", taskID), domain.ErrState)
	}
	return store.DeleteTask(ctx, tx, taskID)
}

func appendTask(tasks []string, taskID string) []string {
	for _, id := range tasks {
		if id == taskID {
			return tasks
		}
	}
	return append(tasks, taskID)
}

func removeTask(tasks []string, taskID string) []string {
	out := make([]string, 0, len(tasks))
	for _, id := range tasks {
		if id != taskID {
			out = append(out, id)
		}
	}
	return out
}
