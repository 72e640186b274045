package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

const hunterSelectColumns = `SELECT
	id, skills, status, current_tasks, completed_tasks, failed_tasks,
	reputation, created_at, updated_at, last_read_discussion_timestamp`

// InsertHunter persists a newly registered hunter within tx.
func InsertHunter(ctx context.Context, tx Querier, h *domain.Hunter) error {
	skills, err := json.Marshal(nonNilSkills(h.Skills))
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	currentTasks, err := json.Marshal(nonNilStrings(h.CurrentTasks))
	if err != nil {
		return fmt.Errorf("marshal current_tasks: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO hunters
			(id, skills, status, current_tasks, completed_tasks, failed_tasks,
			 reputation, created_at, updated_at, last_read_discussion_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, string(skills), h.Status, string(currentTasks), h.CompletedTasks, h.FailedTasks,
		h.Reputation, formatTime(h.CreatedAt), formatTime(h.UpdatedAt), formatNullTime(h.LastReadDiscussionTimestamp),
	)
	if err != nil {
		return fmt.Errorf("insert hunter %s: %w", h.ID, err)
	}
	return nil
}

// GetHunter loads a hunter by ID.
func GetHunter(ctx context.Context, q Querier, id string) (*domain.Hunter, error) {
	row := q.QueryRowContext(ctx, hunterSelectColumns+` FROM hunters WHERE id = ?`, id)
	h, err := scanHunter(row)
	if err == sql.ErrNoRows {
		return nil, domain.Wrap(domain.KindNotFound, "hunter not found", fmt.Errorf("hunter %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get hunter %s: %w", id, err)
	}
	return h, nil
}

// UpdateHunter overwrites every mutable column of an existing hunter.
func UpdateHunter(ctx context.Context, tx Querier, h *domain.Hunter) error {
	skills, err := json.Marshal(nonNilSkills(h.Skills))
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	currentTasks, err := json.Marshal(nonNilStrings(h.CurrentTasks))
	if err != nil {
		return fmt.Errorf("marshal current_tasks: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE hunters SET
			skills = ?, status = ?, current_tasks = ?, completed_tasks = ?,
			failed_tasks = ?, reputation = ?, updated_at = ?, last_read_discussion_timestamp = ?
		WHERE id = ?`,
		string(skills), h.Status, string(currentTasks), h.CompletedTasks,
		h.FailedTasks, h.Reputation, formatTime(h.UpdatedAt), formatNullTime(h.LastReadDiscussionTimestamp),
		h.ID,
	)
	if err != nil {
		return fmt.Errorf("update hunter %s: %w", h.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hunter %s: %w", h.ID, err)
	}
	if n == 0 {
		return domain.Wrap(domain.KindNotFound, "hunter not found", fmt.Errorf("hunter %s", h.ID))
	}
	return nil
}

// ListActiveHuntersWithSkill returns active hunters who have skill present
// with a value greater than zero, excluding any ID in exclude.
func ListActiveHuntersWithSkill(ctx context.Context, q Querier, skill string, exclude map[string]bool) ([]*domain.Hunter, error) {
	rows, err := q.QueryContext(ctx, hunterSelectColumns+` FROM hunters WHERE status = ?`, domain.HunterActive)
	if err != nil {
		return nil, fmt.Errorf("list active hunters: %w", err)
	}
	defer rows.Close()

	var out []*domain.Hunter
	for rows.Next() {
		h, err := scanHunter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hunter row: %w", err)
		}
		if exclude[h.ID] {
			continue
		}
		if h.Skills[skill] <= 0 {
			continue
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListHunters returns every hunter in the namespace, active or not.
func ListHunters(ctx context.Context, q Querier) ([]*domain.Hunter, error) {
	rows, err := q.QueryContext(ctx, hunterSelectColumns+` FROM hunters ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list hunters: %w", err)
	}
	defer rows.Close()

	var out []*domain.Hunter
	for rows.Next() {
		h, err := scanHunter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hunter row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHunter(row scannable) (*domain.Hunter, error) {
	var h domain.Hunter
	var skills, currentTasks string
	var createdAt, updatedAt string
	var lastRead sql.NullString

	err := row.Scan(
		&h.ID, &skills, &h.Status, &currentTasks, &h.CompletedTasks, &h.FailedTasks,
		&h.Reputation, &createdAt, &updatedAt, &lastRead,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(skills), &h.Skills); err != nil {
		return nil, fmt.Errorf("unmarshal skills: %w", err)
	}
	if h.Skills == nil {
		h.Skills = map[string]int{}
	}
	if err := json.Unmarshal([]byte(currentTasks), &h.CurrentTasks); err != nil {
		return nil, fmt.Errorf("unmarshal current_tasks: %w", err)
	}

	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	h.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if lastRead.Valid && lastRead.String != "" {
		lt, err := parseTime(lastRead.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_read_discussion_timestamp: %w", err)
		}
		h.LastReadDiscussionTimestamp = &lt
	}

	return &h, nil
}

func nonNilSkills(in map[string]int) map[string]int {
	if in == nil {
		return map[string]int{}
	}
	return in
}
