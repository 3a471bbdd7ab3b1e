package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const defaultListLimit = 50

// SQLiteDeliveryStore implements DeliveryStore backed by SQLite.
type SQLiteDeliveryStore struct {
	db *sql.DB
}

// NewSQLiteDeliveryStore returns a new SQLiteDeliveryStore.
func NewSQLiteDeliveryStore(db *sql.DB) *SQLiteDeliveryStore {
	return &SQLiteDeliveryStore{db: db}
}

// LogDelivery inserts a delivery record into the database.
func (s *SQLiteDeliveryStore) LogDelivery(ctx context.Context, e DeliveryLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_log
			(routing_key, entity_id, recipient, provider, subject, status, reason, message_id, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RoutingKey, e.EntityID, e.Recipient, e.Provider, e.Subject,
		e.Status, e.Reason, e.MessageID, e.TraceID, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery log: %w", err)
	}
	return nil
}

// ListDeliveries returns the most recent log entries, newest first.
func (s *SQLiteDeliveryStore) ListDeliveries(ctx context.Context, limit int) (entries []DeliveryLogEntry, err error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, routing_key, entity_id, recipient, provider, subject, status, reason, message_id, trace_id, created_at
		FROM delivery_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying delivery log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	entries = []DeliveryLogEntry{}
	for rows.Next() {
		var e DeliveryLogEntry
		if err := rows.Scan(&e.ID, &e.RoutingKey, &e.EntityID, &e.Recipient, &e.Provider,
			&e.Subject, &e.Status, &e.Reason, &e.MessageID, &e.TraceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery log rows: %w", err)
	}
	return entries, nil
}

// PruneBefore removes entries older than cutoff.
func (s *SQLiteDeliveryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM delivery_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning delivery log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}
