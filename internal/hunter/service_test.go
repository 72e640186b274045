package hunter

import (
	"context"
	"testing"

	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/store"
)

type fakeTagLookup struct {
	tags map[string][]string
}

func (f *fakeTagLookup) Tags(ctx context.Context, knowledgeID string) ([]string, error) {
	return f.tags[knowledgeID], nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterCreatesNewHunter(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	h, err := Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 30})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if h.Skills["tracking"] != 30 {
		t.Fatalf("expected skill 30, got %d", h.Skills["tracking"])
	}
	if h.Status != domain.HunterActive {
		t.Fatalf("expected active status, got %s", h.Status)
	}
}

func TestRegisterMergesMaxWins(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 30, "cooking": 50}); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, err := Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 10, "diving": 20})
	if err != nil {
		t.Fatalf("register merge: %v", err)
	}
	if h.Skills["tracking"] != 30 {
		t.Fatalf("expected tracking to stay at 30 (max-wins), got %d", h.Skills["tracking"])
	}
	if h.Skills["cooking"] != 50 {
		t.Fatalf("expected untouched cooking skill to remain 50, got %d", h.Skills["cooking"])
	}
	if h.Skills["diving"] != 20 {
		t.Fatalf("expected new skill diving=20, got %d", h.Skills["diving"])
	}
}

func TestStudyCapsAtHundred(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, s.DB(), "hunter-1", map[string]int{"tracking": 98}); err != nil {
		t.Fatalf("register: %v", err)
	}

	lookup := &fakeTagLookup{tags: map[string][]string{"know-1": {"tracking", "cooking"}}}
	h, err := Study(ctx, s.DB(), lookup, "hunter-1", "know-1")
	if err != nil {
		t.Fatalf("study: %v", err)
	}
	if h.Skills["tracking"] != 100 {
		t.Fatalf("expected tracking capped at 100, got %d", h.Skills["tracking"])
	}
	if h.Skills["cooking"] != 5 {
		t.Fatalf("expected new skill cooking=5, got %d", h.Skills["cooking"])
	}
}

func TestAdjustReputation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, s.DB(), "hunter-1", nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	h, err := AdjustReputation(ctx, s.DB(), "hunter-1", 75)
	if err != nil {
		t.Fatalf("adjust reputation: %v", err)
	}
	if h.Reputation != 75 {
		t.Fatalf("expected reputation 75, got %d", h.Reputation)
	}
}

func TestFindBestHunterForTaskScoresAndExcludes(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, s.DB(), "h1", map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register h1: %v", err)
	}
	if _, err := Register(ctx, s.DB(), "h2", map[string]int{"tracking": 10}); err != nil {
		t.Fatalf("register h2: %v", err)
	}
	if _, err := AdjustReputation(ctx, s.DB(), "h1", 50); err != nil {
		t.Fatalf("adjust h1: %v", err)
	}
	if _, err := AdjustReputation(ctx, s.DB(), "h2", 90); err != nil {
		t.Fatalf("adjust h2: %v", err)
	}

	best, err := FindBestHunterForTask(ctx, s.DB(), "tracking", nil)
	if err != nil {
		t.Fatalf("find best: %v", err)
	}
	if best == nil || best.ID != "h2" {
		t.Fatalf("expected h2 (higher reputation) to win, got %+v", best)
	}

	excluded, err := FindBestHunterForTask(ctx, s.DB(), "tracking", []string{"h2"})
	if err != nil {
		t.Fatalf("find best excluding h2: %v", err)
	}
	if excluded == nil || excluded.ID != "h1" {
		t.Fatalf("expected h1 once h2 excluded, got %+v", excluded)
	}
}

func TestFindBestHunterForTaskNoCandidates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	best, err := FindBestHunterForTask(ctx, s.DB(), "tracking", nil)
	if err != nil {
		t.Fatalf("find best: %v", err)
	}
	if best != nil {
		t.Fatalf("expected nil, got %+v", best)
	}
}

func TestListReturnsAllHunters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := Register(ctx, s.DB(), "h1", nil); err != nil {
		t.Fatalf("register h1: %v", err)
	}
	if _, err := Register(ctx, s.DB(), "h2", nil); err != nil {
		t.Fatalf("register h2: %v", err)
	}

	all, err := List(ctx, s.DB())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 hunters, got %d", len(all))
	}
}
