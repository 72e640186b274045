// Package orchestrator is the coordination entry point (C10): every
// operation resolves identity, acquires the namespace's store, runs the
// relevant service call inside a transaction, commits, and only then fires
// post-commit side effects (discussion fan-out, knowledge-draft jobs) on
// the bus. No business logic lives here — it belongs to internal/hunter,
// internal/task, internal/report, internal/discussion.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/antigravity-dev/taskhub/internal/bus"
	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/discussion"
	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/hunter"
	"github.com/antigravity-dev/taskhub/internal/identity"
	"github.com/antigravity-dev/taskhub/internal/report"
	"github.com/antigravity-dev/taskhub/internal/store"
	"github.com/antigravity-dev/taskhub/internal/task"
)

// Bus is the narrow slice of internal/bus an orchestrator needs to publish
// post-commit messages. A nil Bus field disables publishing entirely
// (useful for tests and for toolproto callers that don't need fan-out).
type Bus interface {
	PublishJSON(subject string, v any) error
}

// Orchestrator wires C1 (identity), the namespace store registry, and the
// C4/C5/C6/C9 services into the single call path every transport adapter
// uses.
type Orchestrator struct {
	Registry  *store.Registry
	Identity  *identity.Resolver
	Workflow  config.Workflow
	Bus       Bus
	Knowledge hunter.KnowledgeTagLookup
	Logger    *slog.Logger
}

// New builds an Orchestrator. bus and knowledge may be nil: a nil Bus
// disables post-commit publishing (tests that skip the embedded NATS
// server), a nil Knowledge lookup makes hunter.study fail for any caller
// that actually invokes it (acceptable for deployments wired without an
// Outline knowledge base).
func New(registry *store.Registry, resolver *identity.Resolver, wf config.Workflow, b Bus, knowledge hunter.KnowledgeTagLookup, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Registry: registry, Identity: resolver, Workflow: wf, Bus: b, Knowledge: knowledge, Logger: logger}
}

// resolve runs C1 and opens (or reuses) the resolved namespace's store.
func (o *Orchestrator) resolve(header http.Header, forList bool) (identity.Identity, *store.Store, error) {
	var id identity.Identity
	var err error
	if forList {
		id, err = o.Identity.ResolveForList(header)
	} else {
		id, err = o.Identity.Resolve(header)
	}
	if err != nil {
		return identity.Identity{}, nil, err
	}
	s, err := o.Registry.Get(id.Namespace)
	if err != nil {
		return identity.Identity{}, nil, fmt.Errorf("orchestrator: open namespace store: %w", err)
	}
	return id, s, nil
}

// publish best-effort publishes a post-commit message. Failures are logged,
// never returned — the write already committed by the time this runs.
func (o *Orchestrator) publish(subject string, v any) {
	if o.Bus == nil {
		return
	}
	if err := o.Bus.PublishJSON(subject, v); err != nil {
		o.Logger.Error("orchestrator: post-commit publish failed", "subject", subject, "error", err)
	}
}

// HunterRegister runs hunter.register.
func (o *Orchestrator) HunterRegister(ctx context.Context, header http.Header, skills map[string]int) (*domain.Hunter, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var h *domain.Hunter
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		h, err = hunter.Register(ctx, tx, id.HunterID, skills)
		return err
	})
	return h, err
}

// HunterStudy runs hunter.study.
func (o *Orchestrator) HunterStudy(ctx context.Context, header http.Header, knowledgeID string) (*domain.Hunter, error) {
	if o.Knowledge == nil {
		return nil, domain.Wrap(domain.KindExternal, "knowledge lookup not configured", domain.ErrExternal)
	}
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var h *domain.Hunter
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		h, err = hunter.Study(ctx, tx, o.Knowledge, id.HunterID, knowledgeID)
		return err
	})
	return h, err
}

// TaskPublish runs task.publish.
func (o *Orchestrator) TaskPublish(ctx context.Context, header http.Header, name, details, requiredSkill string, dependsOn []string, taskType domain.TaskType) (*domain.Task, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var t *domain.Task
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = task.Publish(ctx, tx, id.HunterID, name, details, requiredSkill, dependsOn, taskType)
		return err
	})
	return t, err
}

// TaskClaim runs task.claim.
func (o *Orchestrator) TaskClaim(ctx context.Context, header http.Header, taskID string) (*domain.Task, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var t *domain.Task
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = task.Claim(ctx, tx, taskID, id.HunterID)
		return err
	})
	return t, err
}

// TaskStart runs task.start.
func (o *Orchestrator) TaskStart(ctx context.Context, header http.Header, taskID string) (*domain.Task, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var t *domain.Task
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = task.Start(ctx, tx, taskID, id.HunterID)
		return err
	})
	return t, err
}

// TaskComplete runs task.complete.
func (o *Orchestrator) TaskComplete(ctx context.Context, header http.Header, taskID string, result *string, finalStatus domain.TaskStatus) (*domain.Task, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var t *domain.Task
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = task.Complete(ctx, tx, taskID, id.HunterID, result, finalStatus)
		return err
	})
	return t, err
}

// TaskList runs task.list. Falls back to the configured default namespace
// when no namespace header is supplied, per spec.md's read-only exception.
func (o *Orchestrator) TaskList(ctx context.Context, header http.Header, filter domain.TaskFilter) ([]*domain.Task, error) {
	_, s, err := o.resolve(header, true)
	if err != nil {
		return nil, err
	}
	return task.List(ctx, s.DB(), filter)
}

// TaskArchive runs task.archive.
func (o *Orchestrator) TaskArchive(ctx context.Context, header http.Header, taskID string) (*domain.Task, error) {
	_, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var t *domain.Task
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = task.Archive(ctx, tx, taskID)
		return err
	})
	return t, err
}

// TaskDelete runs task.delete.
func (o *Orchestrator) TaskDelete(ctx context.Context, header http.Header, taskID string, force bool) error {
	_, s, err := o.resolve(header, false)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return task.Delete(ctx, tx, taskID, force)
	})
}

// ReportSubmit runs report.submit. No post-commit message is fired here:
// the evaluation task spawned (if any) is visible to its assigned evaluator
// through task.list, same as any other task.
func (o *Orchestrator) ReportSubmit(ctx context.Context, header http.Header, taskID string, finalStatus domain.TaskStatus, result, details *string) (*report.SubmitResult, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var res *report.SubmitResult
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = report.Submit(ctx, tx, o.Workflow, taskID, id.HunterID, finalStatus, result, details)
		return err
	})
	return res, err
}

// ReportEvaluate runs report.evaluate. On success, if the evaluation scored
// high enough to warrant a knowledge draft, a KnowledgeDraftJob is
// published to the namespace's draft-worker queue — strictly after commit,
// since drafting involves an LLM call and an external document store
// write, neither of which belongs inside a database transaction.
func (o *Orchestrator) ReportEvaluate(ctx context.Context, header http.Header, reportID string, score int, feedback string, skillUpdates map[string]int) (*report.EvaluateResult, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var res *report.EvaluateResult
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = report.Evaluate(ctx, tx, o.Workflow, reportID, id.HunterID, score, feedback, skillUpdates)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.ShouldDraftKnowledge {
		job := bus.KnowledgeDraftJob{
			Namespace:     id.Namespace,
			TaskID:        res.Task.ID,
			TaskDetails:   res.Task.Details,
			RequiredSkill: res.Task.RequiredSkill,
		}
		if res.Report.Result != nil {
			job.ReportResult = *res.Report.Result
		}
		o.publish(bus.KnowledgeDraftSubject(id.Namespace), job)
	}
	return res, nil
}

// DiscussionPost runs discussion.post, then fans the new message out on the
// namespace's discussion subject for live websocket subscribers.
func (o *Orchestrator) DiscussionPost(ctx context.Context, header http.Header, content string) (*domain.DiscussionMessage, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	var msg *domain.DiscussionMessage
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		msg, err = discussion.Post(ctx, tx, id.HunterID, content)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.publish(bus.DiscussionSubject(id.Namespace), msg)
	return msg, nil
}

// DiscussionUnread runs discussion.unread.
func (o *Orchestrator) DiscussionUnread(ctx context.Context, header http.Header) ([]*domain.DiscussionMessage, error) {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return nil, err
	}
	return discussion.Unread(ctx, s.DB(), id.HunterID)
}

// DiscussionMarkRead is a supplement to the operation table: spec.md's
// discussion.unread resolution requires a watermark to advance somewhere,
// and the reference implementation exposes it as its own call
// (mark_as_read) rather than folding it into unread's read path.
func (o *Orchestrator) DiscussionMarkRead(ctx context.Context, header http.Header) error {
	id, s, err := o.resolve(header, false)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return discussion.MarkRead(ctx, tx, id.HunterID)
	})
}
