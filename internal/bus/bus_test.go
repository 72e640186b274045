package bus

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	srv := NewEmbeddedServer(ServerConfig{Port: 0})
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestDiscussionSubjectIsolatesNamespaces(t *testing.T) {
	if DiscussionSubject("alpha") == DiscussionSubject("beta") {
		t.Fatal("expected distinct subjects per namespace")
	}
}

func TestPublishAndSubscribeJSON(t *testing.T) {
	srv := startTestServer(t)
	c, err := NewClient(srv.URL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	type payload struct {
		Content string `json:"content"`
	}

	received := make(chan payload, 1)
	sub, err := SubscribeJSON(c, "test.subject", func(p payload) { received <- p })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := c.PublishJSON("test.subject", payload{Content: "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case p := <-received:
		if p.Content != "hello" {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

type fakeDrafter struct {
	mu   sync.Mutex
	jobs []KnowledgeDraftJob
}

func (f *fakeDrafter) Draft(ctx context.Context, job KnowledgeDraftJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func TestKnowledgeDraftWorkersConsumeJobs(t *testing.T) {
	srv := startTestServer(t)
	c, err := NewClient(srv.URL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drafter := &fakeDrafter{}
	subject := KnowledgeDraftSubject("alpha")
	sub, err := StartKnowledgeDraftWorkers(ctx, c, subject, 2, drafter, slog.Default())
	if err != nil {
		t.Fatalf("start workers: %v", err)
	}
	defer sub.Unsubscribe()

	job := KnowledgeDraftJob{Namespace: "alpha", TaskID: "task-1", TaskDetails: "d", ReportResult: "r"}
	if err := c.PublishJSON(subject, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		drafter.mu.Lock()
		n := len(drafter.jobs)
		drafter.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for job to be processed")
}
