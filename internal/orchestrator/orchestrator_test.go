package orchestrator

import (
	"context"
	"net/http"
	"testing"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/identity"
	"github.com/antigravity-dev/taskhub/internal/store"
)

type recordingBus struct {
	subjects []string
	payloads []any
}

func (b *recordingBus) PublishJSON(subject string, v any) error {
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, v)
	return nil
}

func newTestOrchestrator(t *testing.T, b Bus) *Orchestrator {
	t.Helper()
	registry := store.NewRegistry(t.TempDir())
	t.Cleanup(func() { registry.CloseAll() })
	resolver := identity.NewResolver("")
	wf := config.Workflow{
		ReportEvaluationSkill:   "tracking",
		AutoGenerateKnowledge:   true,
		KnowledgeScoreThreshold: 90,
	}
	return New(registry, resolver, wf, b, nil, nil)
}

func headers(hunterID, namespace string) http.Header {
	h := http.Header{}
	h.Set(identity.HunterIDHeader, hunterID)
	h.Set(identity.NamespaceHeader, namespace)
	return h
}

func TestHunterRegisterAndTaskPublishRoundTrip(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	if _, err := o.HunterRegister(ctx, headers("publisher-1", "alpha"), map[string]int{"tracking": 50}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tk, err := o.TaskPublish(ctx, headers("publisher-1", "alpha"), "track a bounty", "details", "tracking", nil, domain.TaskNormal)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if tk.Status != domain.TaskPending {
		t.Fatalf("expected pending task, got %s", tk.Status)
	}

	tasks, err := o.TaskList(ctx, headers("publisher-1", "alpha"), domain.TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != tk.ID {
		t.Fatalf("expected the published task back from list, got %+v", tasks)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	if _, err := o.HunterRegister(ctx, headers("publisher-1", "alpha"), nil); err != nil {
		t.Fatalf("register publisher: %v", err)
	}
	if _, err := o.TaskPublish(ctx, headers("publisher-1", "alpha"), "a", "d", "tracking", nil, domain.TaskNormal); err != nil {
		t.Fatalf("publish alpha: %v", err)
	}

	betaTasks, err := o.TaskList(ctx, headers("publisher-1", "beta"), domain.TaskFilter{})
	if err != nil {
		t.Fatalf("list beta: %v", err)
	}
	if len(betaTasks) != 0 {
		t.Fatalf("expected beta namespace to be empty, got %+v", betaTasks)
	}
}

func TestDiscussionPostPublishesToBus(t *testing.T) {
	b := &recordingBus{}
	o := newTestOrchestrator(t, b)
	ctx := context.Background()

	msg, err := o.DiscussionPost(ctx, headers("hunter-1", "alpha"), "hello hunters")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(b.subjects) != 1 || b.subjects[0] != "taskhub.discussion.alpha" {
		t.Fatalf("expected one publish to the alpha discussion subject, got %+v", b.subjects)
	}
	payload, ok := b.payloads[0].(*domain.DiscussionMessage)
	if !ok || payload.ID != msg.ID {
		t.Fatalf("expected published payload to be the posted message, got %+v", b.payloads[0])
	}
}

func TestReportSubmitThenEvaluateSpawnsKnowledgeDraftJob(t *testing.T) {
	b := &recordingBus{}
	o := newTestOrchestrator(t, b)
	ctx := context.Background()

	pub := headers("publisher-1", "alpha")
	hun := headers("hunter-1", "alpha")
	evalHdr := headers("evaluator-1", "alpha")

	if _, err := o.HunterRegister(ctx, hun, map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register hunter: %v", err)
	}
	if _, err := o.HunterRegister(ctx, evalHdr, map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register evaluator: %v", err)
	}
	if _, err := o.HunterRegister(ctx, pub, nil); err != nil {
		t.Fatalf("register publisher: %v", err)
	}

	tk, err := o.TaskPublish(ctx, pub, "track a bounty", "hunt it down", "tracking", nil, domain.TaskNormal)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := o.TaskClaim(ctx, hun, tk.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := o.TaskStart(ctx, hun, tk.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	result := "caught the bounty"
	submitRes, err := o.ReportSubmit(ctx, hun, tk.ID, domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitRes.EvalTask == nil {
		t.Fatal("expected an evaluation task to be spawned")
	}

	evalRes, err := o.ReportEvaluate(ctx, evalHdr, submitRes.Report.ID, 100, "flawless", map[string]int{"tracking": 5})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !evalRes.ShouldDraftKnowledge {
		t.Fatal("expected a score of 100 to clear the knowledge threshold")
	}

	if len(b.subjects) != 1 || b.subjects[0] != "knowledge.draft.alpha" {
		t.Fatalf("expected one publish to the alpha knowledge-draft subject, got %+v", b.subjects)
	}
}

func TestReportEvaluateSkipsKnowledgeDraftBelowThreshold(t *testing.T) {
	b := &recordingBus{}
	o := newTestOrchestrator(t, b)
	ctx := context.Background()

	pub := headers("publisher-1", "alpha")
	hun := headers("hunter-1", "alpha")
	evalHdr := headers("evaluator-1", "alpha")

	if _, err := o.HunterRegister(ctx, hun, map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register hunter: %v", err)
	}
	if _, err := o.HunterRegister(ctx, evalHdr, map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register evaluator: %v", err)
	}
	if _, err := o.HunterRegister(ctx, pub, nil); err != nil {
		t.Fatalf("register publisher: %v", err)
	}

	tk, err := o.TaskPublish(ctx, pub, "track a bounty", "hunt it down", "tracking", nil, domain.TaskNormal)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := o.TaskClaim(ctx, hun, tk.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := o.TaskStart(ctx, hun, tk.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	result := "did okay"
	submitRes, err := o.ReportSubmit(ctx, hun, tk.ID, domain.TaskCompleted, &result, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	evalRes, err := o.ReportEvaluate(ctx, evalHdr, submitRes.Report.ID, 40, "mediocre", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if evalRes.ShouldDraftKnowledge {
		t.Fatal("expected a score of 40 to stay below the knowledge threshold")
	}
	if len(b.subjects) != 0 {
		t.Fatalf("expected no knowledge-draft publish, got %+v", b.subjects)
	}
}

func TestDiscussionUnreadAdvancesAfterMarkRead(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	alice := headers("alice", "alpha")
	bob := headers("bob", "alpha")

	if _, err := o.DiscussionPost(ctx, alice, "first"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := o.HunterRegister(ctx, bob, nil); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	unread, err := o.DiscussionUnread(ctx, bob)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread message, got %d", len(unread))
	}

	if err := o.DiscussionMarkRead(ctx, bob); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unread, err = o.DiscussionUnread(ctx, bob)
	if err != nil {
		t.Fatalf("unread after mark: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected 0 unread after mark-read, got %d", len(unread))
	}
}
