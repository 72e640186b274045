// Package report implements report submission (with the atomic evaluation-
// task spawn) and peer evaluation (with its reputation/skill math).
package report

import (
	"context"
	"fmt"
	"math"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/hunter"
	"github.com/antigravity-dev/taskhub/internal/ids"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// SubmitResult carries the report plus the evaluation task spawned
// alongside it, if any.
type SubmitResult struct {
	Report   *domain.Report
	EvalTask *domain.Task
}

// Submit records a hunter's report for a task it held, transitions the task
// to its terminal status, and — for NORMAL tasks at or above the configured
// priority threshold — atomically spawns an EVALUATION task routed to the
// best available evaluator. Every step runs against tx; the caller commits.
func Submit(ctx context.Context, tx store.Querier, wf config.Workflow, taskID, hunterID string, finalStatus domain.TaskStatus, result, details *string) (*SubmitResult, error) {
	if finalStatus != domain.TaskCompleted && finalStatus != domain.TaskFailed {
		return nil, domain.Wrap(domain.KindState, fmt.Sprintf("invalid report status %s", finalStatus), domain.ErrState)
	}

	t, err := store.GetTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if t.HunterID == nil || *t.HunterID != hunterID {
		return nil, domain.Wrap(domain.KindOwner, fmt.Sprintf("task %s is not claimed by hunter %s", taskID, hunterID), domain.ErrOwner)
	}

	now := ids.Now()
	rep := &domain.Report{
		ID:        ids.New("report"),
		TaskID:    taskID,
		HunterID:  hunterID,
		Status:    finalStatus,
		Result:    result,
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.InsertReport(ctx, tx, rep); err != nil {
		return nil, fmt.Errorf("report submit: %w", err)
	}

	t.Status = finalStatus
	t.Result = result
	t.UpdatedAt = now
	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("report submit: %w", err)
	}

	var evalTask *domain.Task
	if t.TaskType == domain.TaskNormal && t.Priority >= wf.AutoEvaluationMinPriority {
		evalTask, err = spawnEvaluationTask(ctx, tx, wf, t, rep)
		if err != nil {
			return nil, fmt.Errorf("report submit: spawn evaluation task: %w", err)
		}
	}

	return &SubmitResult{Report: rep, EvalTask: evalTask}, nil
}

func spawnEvaluationTask(ctx context.Context, tx store.Querier, wf config.Workflow, parent *domain.Task, rep *domain.Report) (*domain.Task, error) {
	skill := wf.ReportEvaluationSkill
	if skill == "" {
		skill = parent.RequiredSkill
	}

	evaluator, err := hunter.FindBestHunterForTask(ctx, tx, skill, []string{rep.HunterID})
	if err != nil {
		return nil, err
	}

	now := ids.Now()
	system := domain.SystemHunterID
	evalTask := &domain.Task{
		ID:                  ids.New("task"),
		Name:                fmt.Sprintf("evaluate report %s", shortID(rep.ID)),
		Details:             fmt.Sprintf("Evaluate the report submitted for task %s.", parent.ID),
		RequiredSkill:       skill,
		Status:              domain.TaskPending,
		Priority:            parent.Priority,
		TaskType:            domain.TaskEvaluation,
		PublishedByHunterID: &system,
		DependsOn:           []string{},
		ParentTaskID:        &parent.ID,
		ReportID:            &rep.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if evaluator != nil {
		evalTask.HunterID = &evaluator.ID
	}

	if err := store.InsertTask(ctx, tx, evalTask); err != nil {
		return nil, err
	}
	return evalTask, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// EvaluateResult carries data the orchestrator needs for the post-commit
// knowledge-draft step, which must not run inside the same transaction.
type EvaluateResult struct {
	Report               *domain.Report
	Task                 *domain.Task
	ShouldDraftKnowledge bool
}

// Evaluate peer-scores a submitted report: persists the evaluation,
// computes the submitter's reputation gain and per-skill deltas (both
// scaled by the parent task's priority bonus), and persists the updated
// hunter. Returns whether the post-commit knowledge-draft step should run.
func Evaluate(ctx context.Context, tx store.Querier, wf config.Workflow, reportID, evaluatorID string, score int, feedback string, skillUpdates map[string]int) (*EvaluateResult, error) {
	rep, err := store.GetReport(ctx, tx, reportID)
	if err != nil {
		return nil, err
	}
	if evaluatorID == rep.HunterID {
		return nil, domain.Wrap(domain.KindSelfEval, "hunter cannot evaluate its own report", domain.ErrSelfEval)
	}

	now := ids.Now()
	rep.Evaluation = &domain.ReportEvaluation{
		Score:        score,
		Feedback:     feedback,
		EvaluatorID:  evaluatorID,
		SkillUpdates: skillUpdates,
		EvaluatedAt:  now,
	}
	rep.UpdatedAt = now
	if err := store.UpdateReport(ctx, tx, rep); err != nil {
		return nil, fmt.Errorf("report evaluate: %w", err)
	}

	t, err := store.GetTask(ctx, tx, rep.TaskID)
	if err != nil {
		return nil, fmt.Errorf("report evaluate: %w", err)
	}
	t.Evaluation = &domain.TaskEvaluationRecord{
		Score:        score,
		Feedback:     feedback,
		EvaluatorID:  evaluatorID,
		SkillUpdates: skillUpdates,
		EvaluatedAt:  now,
	}
	t.UpdatedAt = now
	if err := store.UpdateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("report evaluate: %w", err)
	}

	h, err := store.GetHunter(ctx, tx, rep.HunterID)
	if err != nil {
		return nil, fmt.Errorf("report evaluate: %w", err)
	}

	priorityBonus := 1 + float64(t.Priority)/100.0
	reputationGain := int(math.Floor(float64(score) / 10.0 * priorityBonus))
	h.Reputation += reputationGain

	for skill, delta := range skillUpdates {
		adjusted := h.Skills[skill] + int(math.Floor(float64(delta)*priorityBonus))
		h.Skills[skill] = clamp(adjusted, 0, 100)
	}
	h.UpdatedAt = now

	if err := store.UpdateHunter(ctx, tx, h); err != nil {
		return nil, fmt.Errorf("report evaluate: %w", err)
	}

	shouldDraft := wf.AutoGenerateKnowledge && score >= wf.KnowledgeScoreThreshold
	return &EvaluateResult{Report: rep, Task: t, ShouldDraftKnowledge: shouldDraft}, nil
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
