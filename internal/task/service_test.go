package task

import (
	"context"
	"testing"

	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/hunter"
	"github.com/antigravity-dev/taskhub/internal/store"
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

func TestPublishSystemTaskSkipsPublisherCheck(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tk, err := Publish(ctx, s.DB(), domain.SystemHunterID, "eval", "details", "eval", nil, domain.TaskEvaluation)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if tk.Priority != 0 {
		t.Fatalf("expected system priority 0, got %d", tk.Priority)
	}
	if tk.Status != domain.TaskPending {
		t.Fatalf("expected pending, got %s", tk.Status)
	}
}

func TestPublishDerivesPriorityFromReputation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := hunter.Register(ctx, s.DB(), "pub-1", nil); err != nil {
		t.Fatalf("register publisher: %v", err)
	}
	if _, err := hunter.AdjustReputation(ctx, s.DB(), "pub-1", 47); err != nil {
		t.Fatalf("adjust reputation: %v", err)
	}

	tk, err := Publish(ctx, s.DB(), "pub-1", "scout", "details", "tracking", nil, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if tk.Priority != 4 {
		t.Fatalf("expected priority 4 (47/10 floor), got %d", tk.Priority)
	}
	if tk.TaskType != domain.TaskNormal {
		t.Fatalf("expected default task type NORMAL, got %s", tk.TaskType)
	}
}

func TestPublishUnknownPublisherFails(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := Publish(ctx, s.DB(), "ghost", "scout", "details", "tracking", nil, "")
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func setupClaimableTask(t *testing.T, s *store.Store) (ctx context.Context, taskID string) {
	t.Helper()
	ctx = context.Background()
	if _, err := hunter.Register(ctx, s.DB(), "pub-1", nil); err != nil {
		t.Fatalf("register publisher: %v", err)
	}
	if _, err := hunter.Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 0}); err != nil {
		t.Fatalf("register hunter: %v", err)
	}
	tk, err := Publish(ctx, s.DB(), "pub-1", "scout", "details", "tracking", nil, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return ctx, tk.ID
}

func TestClaimHappyPath(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupClaimableTask(t, s)

	tk, err := Claim(ctx, s.DB(), taskID, "hunter-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if tk.Status != domain.TaskClaimed {
		t.Fatalf("expected claimed, got %s", tk.Status)
	}
	if tk.HunterID == nil || *tk.HunterID != "hunter-1" {
		t.Fatalf("expected hunter_id hunter-1, got %v", tk.HunterID)
	}
	if tk.LeaseID == nil || tk.LeaseExpiresAt == nil {
		t.Fatal("expected lease fields to be set")
	}

	h, err := hunter.List(ctx, s.DB())
	if err != nil {
		t.Fatalf("list hunters: %v", err)
	}
	var found bool
	for _, candidate := range h {
		if candidate.ID == "hunter-1" {
			for _, id := range candidate.CurrentTasks {
				if id == taskID {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("expected claimed task to appear in hunter's current_tasks")
	}
}

func TestClaimRejectsSelfClaim(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := hunter.Register(ctx, s.DB(), "pub-1", map[string]int{"tracking": 0}); err != nil {
		t.Fatalf("register: %v", err)
	}
	tk, err := Publish(ctx, s.DB(), "pub-1", "scout", "details", "tracking", nil, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	_, err = Claim(ctx, s.DB(), tk.ID, "pub-1")
	if domain.KindOf(err) != domain.KindSelfClaim {
		t.Fatalf("expected KindSelfClaim, got %v", err)
	}
}

func TestClaimRejectsMissingSkill(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := hunter.Register(ctx, s.DB(), "pub-1", nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := hunter.Register(ctx, s.DB(), "hunter-1", nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	tk, err := Publish(ctx, s.DB(), "pub-1", "scout", "details", "tracking", nil, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	_, err = Claim(ctx, s.DB(), tk.ID, "hunter-1")
	if domain.KindOf(err) != domain.KindSkill {
		t.Fatalf("expected KindSkill, got %v", err)
	}
}

func TestClaimRejectsNonPending(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupClaimableTask(t, s)
	if _, err := Claim(ctx, s.DB(), taskID, "hunter-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := Claim(ctx, s.DB(), taskID, "hunter-1"); domain.KindOf(err) != domain.KindState {
		t.Fatalf("expected KindState on re-claim, got %v", err)
	}
}

func TestFullLifecycleCompleteUpdatesHunterTally(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupClaimableTask(t, s)

	if _, err := Claim(ctx, s.DB(), taskID, "hunter-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := Start(ctx, s.DB(), taskID, "hunter-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	result := "done"
	tk, err := Complete(ctx, s.DB(), taskID, "hunter-1", &result, domain.TaskCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tk.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", tk.Status)
	}
	if tk.Result == nil || *tk.Result != "done" {
		t.Fatalf("expected result to round-trip, got %v", tk.Result)
	}

	all, err := hunter.List(ctx, s.DB())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, h := range all {
		if h.ID != "hunter-1" {
			continue
		}
		if len(h.CurrentTasks) != 0 {
			t.Fatalf("expected current_tasks to be cleared, got %v", h.CurrentTasks)
		}
		if h.CompletedTasks != 1 {
			t.Fatalf("expected completed_tasks=1, got %d", h.CompletedTasks)
		}
	}

	if _, err := Archive(ctx, s.DB(), taskID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	got, err := store.GetTask(ctx, s.DB(), taskID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TaskArchived || !got.IsArchived {
		t.Fatalf("expected archived task, got %+v", got)
	}
}

func TestStartRequiresOwnership(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupClaimableTask(t, s)
	if _, err := Claim(ctx, s.DB(), taskID, "hunter-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := Start(ctx, s.DB(), taskID, "someone-else"); domain.KindOf(err) != domain.KindOwner {
		t.Fatalf("expected KindOwner, got %v", err)
	}
}

func TestDeleteRefusesClaimedWithoutForce(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupClaimableTask(t, s)
	if _, err := Claim(ctx, s.DB(), taskID, "hunter-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := Delete(ctx, s.DB(), taskID, false); domain.KindOf(err) != domain.KindState {
		t.Fatalf("expected KindState, got %v", err)
	}
	if err := Delete(ctx, s.DB(), taskID, true); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if _, err := store.GetTask(ctx, s.DB(), taskID); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected task gone after forced delete, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	s := openStore(t)
	ctx, taskID := setupClaimableTask(t, s)
	if _, err := Claim(ctx, s.DB(), taskID, "hunter-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	claimed := domain.TaskClaimed
	got, err := List(ctx, s.DB(), domain.TaskFilter{Status: &claimed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != taskID {
		t.Fatalf("expected only the claimed task, got %+v", got)
	}
}
