package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
)

// OrderRepository implements orders.Repository on PostgreSQL.
type OrderRepository struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, nowFunc: time.Now}
}

// Save upserts the snapshot when its version is newer than the stored one and
// appends history entries not yet in the status log.
func (r *OrderRepository) Save(ctx context.Context, order model.Order) (err error) {
	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order document: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// 1. Upsert the snapshot behind the version guard
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, status, archived, version, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE SET
		    status = EXCLUDED.status,
		    archived = EXCLUDED.archived,
		    version = EXCLUDED.version,
		    document = EXCLUDED.document,
		    updated_at = EXCLUDED.updated_at
		WHERE orders.version < EXCLUDED.version
	`, order.OrderID, string(order.Status), order.Archived, order.Version, doc, r.nowFunc().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.OrderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		err = &orders.OrderError{OrderID: order.OrderID, Err: orders.ErrStaleSnapshot}
		return err
	}

	// 2. Append new history entries to order_status_log
	for _, h := range order.History {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_status_log (id, order_id, status, changed_by, notes, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, h.ID, order.OrderID, string(h.Status), h.Actor, h.Notes, h.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert order status log: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (model.Order, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT document FROM orders WHERE order_id = $1`, orderID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, &orders.OrderError{OrderID: orderID, Err: orders.ErrOrderNotFound}
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return decode(orderID, doc)
}

func (r *OrderRepository) List(ctx context.Context) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT order_id, document FROM orders ORDER BY order_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var (
		out     []model.Order
		skipped []error
	)
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o, err := decode(id, doc)
		if err != nil {
			skipped = append(skipped, &orders.SnapshotError{OrderID: id, Err: err})
			continue
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return out, errors.Join(skipped...)
}

// StatusLog returns the logged history of one order, oldest first.
func (r *OrderRepository) StatusLog(ctx context.Context, orderID string) ([]model.TransitionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, changed_by, notes, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	var out []model.TransitionRecord
	for rows.Next() {
		var rec model.TransitionRecord
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.Actor, &rec.Notes, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decode(orderID string, doc []byte) (model.Order, error) {
	var o model.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return model.Order{}, fmt.Errorf("decode order %s document: %w", orderID, err)
	}
	return o, nil
}

var _ orders.Repository = (*OrderRepository)(nil)
