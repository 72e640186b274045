package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

// timeLayout is the exact text format every timestamp column is written
// and read in. Because reads always go through parseTime and writes always
// go through formatTime, the layout never needs to tolerate SQLite's other
// DATETIME representations.
const timeLayout = "2006-01-02 15:04:05.000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// FormatTime exposes the store's canonical timestamp text encoding to
// callers outside the package (the reaper's staleness cutoffs) that need to
// build query parameters matching what's persisted.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func marshalEvaluation(ev *domain.TaskEvaluationRecord) (any, error) {
	if ev == nil {
		return nil, nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation: %w", err)
	}
	return string(b), nil
}

// InsertTask persists a new task within tx.
func InsertTask(ctx context.Context, tx Querier, t *domain.Task) error {
	dependsOn, err := json.Marshal(nonNilStrings(t.DependsOn))
	if err != nil {
		return fmt.Errorf("marshal depends_on: %w", err)
	}
	evaluation, err := marshalEvaluation(t.Evaluation)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks
			(id, name, details, required_skill, status, priority, task_type,
			 hunter_id, published_by_hunter_id, lease_id, lease_expires_at,
			 depends_on, parent_task_id, report_id, evaluation, result,
			 is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Details, t.RequiredSkill, string(t.Status), t.Priority, string(t.TaskType),
		t.HunterID, t.PublishedByHunterID, t.LeaseID, formatNullTime(t.LeaseExpiresAt),
		string(dependsOn), t.ParentTaskID, t.ReportID, evaluation, t.Result,
		boolToInt(t.IsArchived), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

// GetTask loads a task by ID, returning a *domain.Error{Kind: KindNotFound}
// when absent.
func GetTask(ctx context.Context, q Querier, id string) (*domain.Task, error) {
	row := q.QueryRowContext(ctx, taskSelectColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, domain.Wrap(domain.KindNotFound, "task not found", fmt.Errorf("task %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// UpdateTask overwrites every mutable column of an existing task.
func UpdateTask(ctx context.Context, tx Querier, t *domain.Task) error {
	dependsOn, err := json.Marshal(nonNilStrings(t.DependsOn))
	if err != nil {
		return fmt.Errorf("marshal depends_on: %w", err)
	}
	evaluation, err := marshalEvaluation(t.Evaluation)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			name = ?, details = ?, required_skill = ?, status = ?, priority = ?,
			task_type = ?, hunter_id = ?, published_by_hunter_id = ?, lease_id = ?,
			lease_expires_at = ?, depends_on = ?, parent_task_id = ?, report_id = ?,
			evaluation = ?, result = ?, is_archived = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Details, t.RequiredSkill, string(t.Status), t.Priority,
		string(t.TaskType), t.HunterID, t.PublishedByHunterID, t.LeaseID,
		formatNullTime(t.LeaseExpiresAt), string(dependsOn), t.ParentTaskID, t.ReportID,
		evaluation, t.Result, boolToInt(t.IsArchived), formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if n == 0 {
		return domain.Wrap(domain.KindNotFound, "task not found", fmt.Errorf("task %s", t.ID))
	}
	return nil
}

// DeleteTask hard-deletes a task by ID.
func DeleteTask(ctx context.Context, tx Querier, id string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n == 0 {
		return domain.Wrap(domain.KindNotFound, "task not found", fmt.Errorf("task %s", id))
	}
	return nil
}

// ListTasks returns tasks matching every supplied filter field.
func ListTasks(ctx context.Context, q Querier, filter domain.TaskFilter) ([]*domain.Task, error) {
	query := taskSelectColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.RequiredSkill != nil {
		query += ` AND required_skill = ?`
		args = append(args, *filter.RequiredSkill)
	}
	if filter.HunterID != nil {
		query += ` AND hunter_id = ?`
		args = append(args, *filter.HunterID)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListStaleTasks returns non-archived tasks that have sat untouched past
// their status's staleness window: claimed tasks whose updated_at is at or
// before claimedCutoff, or in_progress tasks whose updated_at is at or
// before inProgressCutoff. Both cutoffs are formatted timestamps (see
// formatTime); the reaper scan supplies now-minus-TTL for each.
func ListStaleTasks(ctx context.Context, q Querier, claimedCutoff, inProgressCutoff string) ([]*domain.Task, error) {
	rows, err := q.QueryContext(ctx, taskSelectColumns+`
		FROM tasks
		WHERE is_archived = 0
		  AND (
		    (status = 'claimed' AND updated_at <= ?)
		    OR (status = 'in_progress' AND updated_at <= ?)
		  )`, claimedCutoff, inProgressCutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const taskSelectColumns = `SELECT
	id, name, details, required_skill, status, priority, task_type,
	hunter_id, published_by_hunter_id, lease_id, lease_expires_at,
	depends_on, parent_task_id, report_id, evaluation, result,
	is_archived, created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*domain.Task, error) {
	var t domain.Task
	var status, taskType string
	var dependsOn string
	var evaluation sql.NullString
	var leaseExpiresAt sql.NullString
	var createdAt, updatedAt string
	var archived int

	err := row.Scan(
		&t.ID, &t.Name, &t.Details, &t.RequiredSkill, &status, &t.Priority, &taskType,
		&t.HunterID, &t.PublishedByHunterID, &t.LeaseID, &leaseExpiresAt,
		&dependsOn, &t.ParentTaskID, &t.ReportID, &evaluation, &t.Result,
		&archived, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskStatus(status)
	t.TaskType = domain.TaskType(taskType)
	t.IsArchived = archived != 0

	if err := json.Unmarshal([]byte(dependsOn), &t.DependsOn); err != nil {
		return nil, fmt.Errorf("unmarshal depends_on: %w", err)
	}
	if evaluation.Valid && evaluation.String != "" {
		var ev domain.TaskEvaluationRecord
		if err := json.Unmarshal([]byte(evaluation.String), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
		t.Evaluation = &ev
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if leaseExpiresAt.Valid && leaseExpiresAt.String != "" {
		lt, err := parseTime(leaseExpiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse lease_expires_at: %w", err)
		}
		t.LeaseExpiresAt = &lt
	}

	return &t, nil
}
