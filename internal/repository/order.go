package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tracechain/tracechain/internal/model"
)

// amount is read back as text so it round-trips through decimal.Decimal exactly.
const orderColumns = `id, order_number, user_id, amount::text, status, items_count, created_at, updated_at`

// CreateOrder inserts an order; user_id is not checked against users.
func (r *Repository) CreateOrder(ctx context.Context, in model.NewOrder) (model.Order, error) {
	query := `
		INSERT INTO orders (order_number, user_id, amount, status, items_count)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING ` + orderColumns

	order, err := scanOrder(r.pool.QueryRow(ctx, query,
		in.OrderNumber,
		in.UserID,
		in.Amount.String(),
		in.Status,
		in.ItemsCount,
	))
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// GetOrder retrieves an order by ID.
func (r *Repository) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("failed to get order by ID: %w", err)
	}
	return order, nil
}

// ListOrders returns every order ordered by ID.
func (r *Repository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
}

// ListOrdersByUser returns the orders referencing userID.
func (r *Repository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o      model.Order
		amount string
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &amount, &o.Status, &o.ItemsCount, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return model.Order{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Order{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	o.Amount = d
	return o, nil
}
