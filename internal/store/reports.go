package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

const reportSelectColumns = `SELECT
	id, task_id, hunter_id, status, details, result, evaluation, created_at, updated_at`

// InsertReport persists a new report within tx.
func InsertReport(ctx context.Context, tx Querier, r *domain.Report) error {
	evaluation, err := marshalReportEvaluation(r.Evaluation)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, task_id, hunter_id, status, details, result, evaluation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskID, r.HunterID, string(r.Status), r.Details, r.Result, evaluation,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ID, err)
	}
	return nil
}

// GetReport loads a report by ID.
func GetReport(ctx context.Context, q Querier, id string) (*domain.Report, error) {
	row := q.QueryRowContext(ctx, reportSelectColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, domain.Wrap(domain.KindNotFound, "report not found", fmt.Errorf("report %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return r, nil
}

// UpdateReport overwrites a report's mutable columns (status, evaluation).
func UpdateReport(ctx context.Context, tx Querier, r *domain.Report) error {
	evaluation, err := marshalReportEvaluation(r.Evaluation)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE reports SET status = ?, details = ?, result = ?, evaluation = ?, updated_at = ?
		WHERE id = ?`,
		string(r.Status), r.Details, r.Result, evaluation, formatTime(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update report %s: %w", r.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report %s: %w", r.ID, err)
	}
	if n == 0 {
		return domain.Wrap(domain.KindNotFound, "report not found", fmt.Errorf("report %s", r.ID))
	}
	return nil
}

func marshalReportEvaluation(ev *domain.ReportEvaluation) (any, error) {
	if ev == nil {
		return nil, nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation: %w", err)
	}
	return string(b), nil
}

func scanReport(row scannable) (*domain.Report, error) {
	var r domain.Report
	var status string
	var evaluation sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&r.ID, &r.TaskID, &r.HunterID, &status, &r.Details, &r.Result, &evaluation,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.TaskStatus(status)
	if evaluation.Valid && evaluation.String != "" {
		var ev domain.ReportEvaluation
		if err := json.Unmarshal([]byte(evaluation.String), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
		r.Evaluation = &ev
	}

	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &r, nil
}
