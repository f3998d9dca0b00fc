package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// Address is the delivery address stored on the order.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order is an accepted checkout. Its lines carry the breakdown that was
// charged, so the price stays reproducible even after catalog rules change.
type Order struct {
	ID            uuid.UUID  `json:"id"`
	CartID        *uuid.UUID `json:"cartId,omitempty"`
	Status        string     `json:"status"`
	Currency      string     `json:"currency"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail"`
	CustomerPhone string     `json:"customerPhone"`
	Address       Address    `json:"address"`
	Notes         *string    `json:"notes,omitempty"`
	TotalPrice    float64    `json:"totalPrice"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Item is an order line frozen at checkout time.
type Item struct {
	ID            uuid.UUID                `json:"id"`
	OrderID       uuid.UUID                `json:"orderId"`
	ProductID     uuid.UUID                `json:"productId"`
	ProductSlug   string                   `json:"productSlug"`
	ProductName   string                   `json:"productName"`
	Qty           int                      `json:"qty"`
	Configuration pricing.NormalizedConfig `json:"configuration"`
	Breakdown     pricing.Breakdown        `json:"breakdown"`
	UnitPrice     float64                  `json:"unitPrice"`
}

// Store persists orders.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create writes the order and its lines in one transaction.
func (s *Store) Create(ctx context.Context, o Order, items []Item) (Order, []Item, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	address, err := json.Marshal(o.Address)
	if err != nil {
		return Order{}, nil, fmt.Errorf("marshal address: %w", err)
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (cart_id, status, currency, customer_name, customer_email, customer_phone, address, notes, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		o.CartID, o.Status, o.Currency, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		address, o.Notes, o.TotalPrice)
	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = o.ID
		cfg, err := json.Marshal(items[i].Configuration)
		if err != nil {
			return Order{}, nil, fmt.Errorf("marshal configuration: %w", err)
		}
		breakdown, err := json.Marshal(items[i].Breakdown)
		if err != nil {
			return Order{}, nil, fmt.Errorf("marshal breakdown: %w", err)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_slug, product_name, qty, configuration, breakdown, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			o.ID, items[i].ProductID, items[i].ProductSlug, items[i].ProductName,
			items[i].Qty, cfg, breakdown, items[i].UnitPrice).Scan(&items[i].ID)
		if err != nil {
			return Order{}, nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

// Get loads an order with its lines. Returns pgx.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Order, []Item, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return Order{}, nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_slug, product_name, qty, configuration, breakdown, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item               Item
			cfg, breakdownData []byte
		)
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductSlug,
			&item.ProductName, &item.Qty, &cfg, &breakdownData, &item.UnitPrice)
		if err != nil {
			return Order{}, nil, err
		}
		if len(cfg) > 0 {
			if err := json.Unmarshal(cfg, &item.Configuration); err != nil {
				return Order{}, nil, fmt.Errorf("decode order item configuration: %w", err)
			}
		}
		if len(breakdownData) > 0 {
			if err := json.Unmarshal(breakdownData, &item.Breakdown); err != nil {
				return Order{}, nil, fmt.Errorf("decode order item breakdown: %w", err)
			}
		}
		items = append(items, item)
	}
	return o, items, rows.Err()
}

// List returns orders newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status string, limit, offset int) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Count returns the number of orders matching the status filter.
func (s *Store) Count(ctx context.Context, status string) (int64, error) {
	var total int64
	var err error
	if status != "" {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&total)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return total, nil
}

// UpdateStatus rewrites the order status. Returns pgx.ErrNoRows when absent.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, id, status))
}

const orderColumns = `id, cart_id, status, currency, customer_name, customer_email,
	customer_phone, address, notes, total_price, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o       Order
		address []byte
	)
	err := row.Scan(&o.ID, &o.CartID, &o.Status, &o.Currency, &o.CustomerName,
		&o.CustomerEmail, &o.CustomerPhone, &address, &o.Notes, &o.TotalPrice,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.Address); err != nil {
			return Order{}, fmt.Errorf("decode order address: %w", err)
		}
	}
	return o, nil
}
