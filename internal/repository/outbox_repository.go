package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	OutboxPending   = "pending"
	OutboxPublished = "published"
	OutboxFailed    = "failed"

	// maxOutboxRetries is the retry count after which a message is parked as failed.
	maxOutboxRetries = 5
)

type OutboxMessage struct {
	ID          uuid.UUID       `json:"id"`
	RoutingKey  string          `json:"routing_key"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
	LastError   *string         `json:"last_error,omitempty"`
	Status      string          `json:"status"`
}

type OutboxRepository struct {
	scope *scope
	now   func() time.Time
}

// Add stages an event for the outbox worker. It becomes visible when the unit saves.
func (r *OutboxRepository) Add(ctx context.Context, routingKey string, payload any) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal outbox payload: %w", err)
	}

	id := uuid.New()
	query, args, err := psql.Insert("outbox_messages").
		Columns("id", "routing_key", "payload", "status", "created_at").
		Values(id, routingKey, body, OutboxPending, r.now()).
		ToSql()
	if err != nil {
		return uuid.Nil, err
	}

	result, err := r.scope.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert outbox message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return uuid.Nil, err
	}
	r.scope.staged(n)
	return id, nil
}

// GetPending locks up to limit pending messages for the rest of the unit.
// Rows locked by another worker are skipped.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]OutboxMessage, error) {
	query := `
		SELECT id, routing_key, payload, created_at, retry_count, last_error, status
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.scope.tx.QueryContext(ctx, query, OutboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox: %w", err)
	}
	defer rows.Close()

	var messages []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var lastError sql.NullString
		err := rows.Scan(
			&m.ID,
			&m.RoutingKey,
			&m.Payload,
			&m.CreatedAt,
			&m.RetryCount,
			&lastError,
			&m.Status,
		)
		if err != nil {
			return nil, err
		}
		if lastError.Valid {
			m.LastError = &lastError.String
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.write(ctx, psql.Update("outbox_messages").
		Set("status", OutboxPublished).
		Set("published_at", r.now()).
		Where(sq.Eq{"id": id}))
}

// MarkFailed records the error and parks the message once it ran out of retries.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.write(ctx, psql.Update("outbox_messages").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("last_error", errMsg).
		Set("status", sq.Expr("CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END", maxOutboxRetries, OutboxFailed, OutboxPending)).
		Where(sq.Eq{"id": id}))
}

// DeletePublished removes published messages older than the retention window.
func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	query, args, err := psql.Delete("outbox_messages").
		Where(sq.Eq{"status": OutboxPublished}).
		Where(sq.Lt{"published_at": r.now().Add(-olderThan)}).
		ToSql()
	if err != nil {
		return 0, err
	}
	result, err := r.scope.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete published outbox: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.scope.staged(n)
	return n, nil
}

func (r *OutboxRepository) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := r.scope.tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("outbox stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}

	return stats, rows.Err()
}

func (r *OutboxRepository) write(ctx context.Context, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	result, err := r.scope.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	r.scope.staged(n)
	return nil
}
