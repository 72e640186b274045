package report

import (
	"context"
	"testing"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/hunter"
	"github.com/antigravity-dev/taskhub/internal/store"
	"github.com/antigravity-dev/taskhub/internal/task"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setupInProgressTask(t *testing.T, s *store.Store) (ctx context.Context, taskID string) {
	t.Helper()
	ctx = context.Background()
	if _, err := hunter.Register(ctx, s.DB(), "pub-1", nil); err != nil {
		t.Fatalf("register publisher: %v", err)
	}
	if _, err := hunter.Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register hunter: %v", err)
	}
	tk, err := task.Publish(ctx, s.DB(), "pub-1", "scout", "do the thing", "tracking", nil, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := task.Claim(ctx, s.DB(), tk.ID, "hunter-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := task.Start(ctx, s.DB(), tk.ID, "hunter-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	return ctx, tk.ID
}

func TestSubmitSpawnsEvaluationTaskForNormalTask(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupInProgressTask(t, s)

	// Register an eligible evaluator with the required skill.
	if _, err := hunter.Register(ctx, s.DB(), "evaluator-1", map[string]int{"tracking": 20}); err != nil {
		t.Fatalf("register evaluator: %v", err)
	}

	result := "scouted successfully"
	wf := config.Workflow{AutoEvaluationMinPriority: 0}
	res, err := Submit(ctx, s.DB(), wf, taskID, "hunter-1", domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Report.Status != domain.TaskCompleted {
		t.Fatalf("expected completed report, got %s", res.Report.Status)
	}
	if res.EvalTask == nil {
		t.Fatal("expected an evaluation task to be spawned")
	}
	if res.EvalTask.TaskType != domain.TaskEvaluation {
		t.Fatalf("expected EVALUATION task type, got %s", res.EvalTask.TaskType)
	}
	if res.EvalTask.PublishedByHunterID == nil || *res.EvalTask.PublishedByHunterID != domain.SystemHunterID {
		t.Fatalf("expected system publisher, got %v", res.EvalTask.PublishedByHunterID)
	}
	if res.EvalTask.HunterID == nil || *res.EvalTask.HunterID != "evaluator-1" {
		t.Fatalf("expected evaluator-1 pre-assigned, got %v", res.EvalTask.HunterID)
	}
	if res.EvalTask.ReportID == nil || *res.EvalTask.ReportID != res.Report.ID {
		t.Fatalf("expected report_id to link back, got %v", res.EvalTask.ReportID)
	}

	parent, err := store.GetTask(ctx, s.DB(), taskID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if parent.Status != domain.TaskCompleted {
		t.Fatalf("expected parent task completed, got %s", parent.Status)
	}
}

func TestSubmitRejectsNonOwner(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupInProgressTask(t, s)

	result := "x"
	_, err := Submit(ctx, s.DB(), config.Workflow{}, taskID, "someone-else", domain.TaskCompleted, &result, nil)
	if domain.KindOf(err) != domain.KindOwner {
		t.Fatalf("expected KindOwner, got %v", err)
	}
}

func TestSubmitSkipsEvaluationBelowPriorityThreshold(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupInProgressTask(t, s)

	result := "done"
	wf := config.Workflow{AutoEvaluationMinPriority: 50}
	res, err := Submit(ctx, s.DB(), wf, taskID, "hunter-1", domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.EvalTask != nil {
		t.Fatalf("expected no evaluation task below threshold, got %+v", res.EvalTask)
	}
}

func TestEvaluateAppliesReputationAndSkillMath(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupInProgressTask(t, s)

	result := "done"
	res, err := Submit(ctx, s.DB(), config.Workflow{AutoEvaluationMinPriority: 999}, taskID, "hunter-1", domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// priority is 0 (publisher has 0 reputation) so priority_bonus = 1.
	evalRes, err := Evaluate(ctx, s.DB(), config.Workflow{}, res.Report.ID, "evaluator-1", 80, "nice work", map[string]int{"tracking": 10})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if evalRes.Report.Evaluation == nil || evalRes.Report.Evaluation.Score != 80 {
		t.Fatalf("expected evaluation persisted, got %+v", evalRes.Report.Evaluation)
	}

	all, err := hunter.List(ctx, s.DB())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var submitter *domain.Hunter
	for _, h := range all {
		if h.ID == "hunter-1" {
			submitter = h
		}
	}
	if submitter == nil {
		t.Fatal("expected submitter hunter to exist")
	}
	if submitter.Reputation != 8 {
		t.Fatalf("expected reputation gain of 8 (floor(80/10*1)), got %d", submitter.Reputation)
	}
	if submitter.Skills["tracking"] != 20 {
		t.Fatalf("expected tracking skill 10+10=20, got %d", submitter.Skills["tracking"])
	}
}

func TestEvaluateRejectsSelfEval(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupInProgressTask(t, s)

	result := "done"
	res, err := Submit(ctx, s.DB(), config.Workflow{AutoEvaluationMinPriority: 999}, taskID, "hunter-1", domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = Evaluate(ctx, s.DB(), config.Workflow{}, res.Report.ID, "hunter-1", 50, "", nil)
	if domain.KindOf(err) != domain.KindSelfEval {
		t.Fatalf("expected KindSelfEval, got %v", err)
	}
}

func TestEvaluateClampsSkillToHundred(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupInProgressTask(t, s)

	result := "done"
	res, err := Submit(ctx, s.DB(), config.Workflow{AutoEvaluationMinPriority: 999}, taskID, "hunter-1", domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := hunter.Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 95}); err != nil {
		t.Fatalf("boost skill: %v", err)
	}

	evalRes, err := Evaluate(ctx, s.DB(), config.Workflow{AutoGenerateKnowledge: true, KnowledgeScoreThreshold: 90}, res.Report.ID, "evaluator-1", 100, "great", map[string]int{"tracking": 20})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !evalRes.ShouldDraftKnowledge {
		t.Fatal("expected knowledge draft to be triggered at score 100 >= threshold 90")
	}

	all, err := hunter.List(ctx, s.DB())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, h := range all {
		if h.ID == "hunter-1" && h.Skills["tracking"] != 100 {
			t.Fatalf("expected tracking clamped to 100, got %d", h.Skills["tracking"])
		}
	}
}
