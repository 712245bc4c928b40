// Package store persists orders in Postgres. It exposes exactly the write
// modes the state machine relies on: Create is create-if-absent and
// ReplaceIfStatus is replace-if-present conditioned on the current status, so
// concurrent writers race deterministically (first writer wins, losers see
// ErrStatusMismatch).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"lnplaylive/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrConflict       = errors.New("order already exists")
	ErrNotFound       = errors.New("order record not found")
	ErrStatusMismatch = errors.New("order status changed by another writer")
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Create inserts a new order record. A second create under the same order_id
// fails with ErrConflict; it never overwrites.
func (s *Store) Create(ctx context.Context, order *models.Order) error {
	deployment, err := marshalDeployment(order.Deployment)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO orders (
			order_id, node_count, hours, amount_msat, description,
			status, expires_after, deployment
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.OrderID,
		order.NodeCount,
		order.Hours,
		order.AmountMsat,
		order.Description,
		order.Status,
		order.ExpiresAfter,
		deployment,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func (s *Store) Get(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT order_id, node_count, hours, amount_msat, description,
			status, expires_after, deployment, created_at, updated_at
		FROM orders WHERE order_id=$1
	`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// ReplaceIfStatus overwrites the mutable order fields, but only while the
// record still holds the expected status. Losing the race is distinguishable
// from the record being gone entirely.
func (s *Store) ReplaceIfStatus(ctx context.Context, orderID string, expected models.OrderStatus, order *models.Order) error {
	deployment, err := marshalDeployment(order.Deployment)
	if err != nil {
		return err
	}
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET status=$3, expires_after=$4, deployment=$5, updated_at=now()
		WHERE order_id=$1 AND status=$2
	`, orderID, expected, order.Status, order.ExpiresAfter, deployment)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id=$1)`, orderID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusMismatch
}

func (s *Store) ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT order_id, node_count, hours, amount_msat, description,
			status, expires_after, deployment, created_at, updated_at
		FROM orders WHERE status=$1
		ORDER BY created_at
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*models.Order, error) {
	var order models.Order
	var description sql.NullString
	var deployment []byte
	var expiresAfter sql.NullTime

	err := row.Scan(
		&order.OrderID,
		&order.NodeCount,
		&order.Hours,
		&order.AmountMsat,
		&description,
		&order.Status,
		&expiresAfter,
		&deployment,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		order.Description = description.String
	}
	if expiresAfter.Valid {
		order.ExpiresAfter = expiresAfter.Time
	}
	if len(deployment) > 0 {
		var d models.Deployment
		if err := json.Unmarshal(deployment, &d); err != nil {
			return nil, err
		}
		order.Deployment = &d
	}
	return &order, nil
}

func marshalDeployment(d *models.Deployment) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}
