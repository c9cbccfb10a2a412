package syncqueue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// Store is the durable operation log behind the queue. Every mutation is
// persisted before the queue reports success, so pending operations survive
// process restarts.
type Store interface {
	// Append persists a new operation at the tail of the log.
	Append(ctx context.Context, op *models.SyncOperation) error

	// Pending returns all persisted operations in enqueue order.
	Pending(ctx context.Context) ([]*models.SyncOperation, error)

	// Remove deletes an operation by its queue id.
	Remove(ctx context.Context, id string) error

	// UpdateRetries persists an operation's retry counter.
	UpdateRetries(ctx context.Context, id string, retries int) error
}

// sqliteStore keeps the operation log in the sync_queue table, ordered by an
// autoincrement sequence.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a durable queue store over the local database.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Append(ctx context.Context, op *models.SyncOperation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, entity_id, kind, target_table, payload, enqueued_at, retries)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.EntityID, string(op.Kind), string(op.Table), string(op.Payload),
		op.EnqueuedAt.UTC().Format(time.RFC3339Nano), op.Retries,
	)
	if err != nil {
		return fmt.Errorf("failed to append sync operation: %w", err)
	}
	return nil
}

func (s *sqliteStore) Pending(ctx context.Context) ([]*models.SyncOperation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, kind, target_table, payload, enqueued_at, retries
		FROM sync_queue ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending sync operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.SyncOperation
	for rows.Next() {
		var (
			op                  models.SyncOperation
			kind, table         string
			payload, enqueuedAt string
		)
		if err := rows.Scan(&op.ID, &op.EntityID, &kind, &table, &payload, &enqueuedAt, &op.Retries); err != nil {
			return nil, fmt.Errorf("failed to scan sync operation: %w", err)
		}
		op.Kind = models.OperationKind(kind)
		op.Table = models.Table(table)
		op.Payload = []byte(payload)
		if op.EnqueuedAt, err = time.Parse(time.RFC3339Nano, enqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to parse enqueued_at: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync operations: %w", err)
	}
	return ops, nil
}

func (s *sqliteStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove sync operation: %w", err)
	}
	return nil
}

func (s *sqliteStore) UpdateRetries(ctx context.Context, id string, retries int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sync_queue SET retries = ? WHERE id = ?`, retries, id); err != nil {
		return fmt.Errorf("failed to update sync operation retries: %w", err)
	}
	return nil
}
