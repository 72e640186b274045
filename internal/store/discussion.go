package store

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

const discussionSelectColumns = `SELECT id, hunter_id, content, created_at`

// InsertDiscussionMessage appends a discussion message within tx.
func InsertDiscussionMessage(ctx context.Context, tx Querier, m *domain.DiscussionMessage) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO discussion_messages (id, hunter_id, content, created_at)
		VALUES (?, ?, ?, ?)`,
		m.ID, m.HunterID, m.Content, formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert discussion message %s: %w", m.ID, err)
	}
	return nil
}

// ListDiscussionMessagesAfter returns messages strictly after the given
// timestamp, oldest first, up to limit (0 means unlimited). A nil after
// returns the full log.
func ListDiscussionMessagesAfter(ctx context.Context, q Querier, after *time.Time, limit int) ([]*domain.DiscussionMessage, error) {
	query := discussionSelectColumns + ` FROM discussion_messages`
	var args []any
	if after != nil {
		query += ` WHERE created_at > ?`
		args = append(args, formatTime(*after))
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list discussion messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.DiscussionMessage
	for rows.Next() {
		m, err := scanDiscussionMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discussion message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListDiscussionMessagesLatest returns the most recent limit messages,
// oldest first.
func ListDiscussionMessagesLatest(ctx context.Context, q Querier, limit int) ([]*domain.DiscussionMessage, error) {
	rows, err := q.QueryContext(ctx, discussionSelectColumns+`
		FROM discussion_messages ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list latest discussion messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.DiscussionMessage
	for rows.Next() {
		m, err := scanDiscussionMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discussion message row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func scanDiscussionMessage(row scannable) (*domain.DiscussionMessage, error) {
	var m domain.DiscussionMessage
	var createdAt string
	if err := row.Scan(&m.ID, &m.HunterID, &m.Content, &createdAt); err != nil {
		return nil, err
	}
	var err error
	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &m, nil
}

func reverse(msgs []*domain.DiscussionMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
