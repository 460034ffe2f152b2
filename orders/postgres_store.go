package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed order store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new order into the database.
func (s *PostgresStore) Create(ctx context.Context, order *Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, total, items_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.Total, order.ItemsCount, order.CreatedAt, order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// Get retrieves an order by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Order, error) {
	var order Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total, items_count, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID,
		&order.Total,
		&order.ItemsCount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

// List returns all orders, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total, items_count, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var list []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Total, &o.ItemsCount,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return list, nil
}
