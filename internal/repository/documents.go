package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/gophershop/internal/model"
)

// GetUserData возвращает документ пользователя. Отсутствующий документ равен пустой записи.
func (r *PostgresRepository) GetUserData(ctx context.Context, userID string) (model.Record, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM user_data WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Record{}, nil
		}
		return nil, fmt.Errorf("select user data: %w", err)
	}

	data := model.Record{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode user data: %w", err)
	}
	return data, nil
}

// PutUserData заменяет документ пользователя целиком.
func (r *PostgresRepository) PutUserData(ctx context.Context, userID string, data model.Record) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_data (user_id, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		userID, raw,
	)
	if err != nil {
		return fmt.Errorf("upsert user data: %w", err)
	}
	return nil
}

// CreateOrder сохраняет заказ и его позиции в одной транзакции.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID string, status model.OrderStatus, items []model.Record) (*model.OrderRecord, error) {
	order := model.OrderRecord{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: status,
		Items:  items,
	}

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`INSERT INTO orders (id, user_id, status) VALUES ($1, $2, $3) RETURNING created_at`,
			order.ID, userID, string(status),
		).Scan(&order.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for i, item := range items {
			raw, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encode order item: %w", err)
			}
			batch.Queue(`INSERT INTO order_items (order_id, position, record) VALUES ($1, $2, $3)`, order.ID, i, raw)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetOrdersByUser возвращает заказы пользователя от новых к старым; позиции идут в порядке оформления.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.OrderRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id::text, o.status, o.created_at,
		        COALESCE(jsonb_agg(i.record ORDER BY i.position) FILTER (WHERE i.order_id IS NOT NULL), '[]'::jsonb)
		 FROM orders o
		 LEFT JOIN order_items i ON i.order_id = o.id
		 WHERE o.user_id = $1
		 GROUP BY o.id
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.OrderRecord
	for rows.Next() {
		var (
			id        string
			status    string
			createdAt time.Time
			rawItems  []byte
		)
		if err := rows.Scan(&id, &status, &createdAt, &rawItems); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		var items []model.Record
		if err := json.Unmarshal(rawItems, &items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}

		orders = append(orders, model.OrderRecord{
			ID:        id,
			UserID:    userID,
			Status:    model.OrderStatus(status),
			Items:     items,
			CreatedAt: createdAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
