package cart

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

// Cart is an anonymous shopping cart. There are no customer accounts; the
// cart id in the client's storage is the only handle.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is a configured product line. Configuration and breakdown are stored
// as priced, so the cart never silently changes value when rules move.
type Item struct {
	ID            uuid.UUID               `json:"id"`
	CartID        uuid.UUID               `json:"cartId"`
	ProductID     uuid.UUID               `json:"productId"`
	ProductSlug   string                  `json:"productSlug"`
	ProductName   string                  `json:"productName"`
	Qty           int                     `json:"qty"`
	Configuration pricing.NormalizedConfig `json:"configuration"`
	Breakdown     pricing.Breakdown       `json:"breakdown"`
	UnitPrice     float64                 `json:"unitPrice"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// Store persists carts and their items.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateCart inserts an empty cart.
func (s *Store) CreateCart(ctx context.Context) (Cart, error) {
	var c Cart
	err := s.pool.QueryRow(ctx,
		`INSERT INTO carts DEFAULT VALUES RETURNING id, created_at, updated_at`).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

// GetCart loads cart metadata. Returns pgx.ErrNoRows when absent.
func (s *Store) GetCart(ctx context.Context, id uuid.UUID) (Cart, error) {
	var c Cart
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM carts WHERE id = $1`, id).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListItems returns cart lines joined with their product identity.
func (s *Store) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.slug, p.name, ci.qty,
			ci.configuration, ci.breakdown, ci.unit_price, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// InsertItem adds a priced line to the cart and bumps the cart timestamp.
func (s *Store) InsertItem(ctx context.Context, item Item) (Item, error) {
	cfg, err := json.Marshal(item.Configuration)
	if err != nil {
		return Item{}, fmt.Errorf("marshal configuration: %w", err)
	}
	breakdown, err := json.Marshal(item.Breakdown)
	if err != nil {
		return Item{}, fmt.Errorf("marshal breakdown: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, qty, configuration, breakdown, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		item.CartID, item.ProductID, item.Qty, cfg, breakdown, item.UnitPrice)
	if err := row.Scan(&item.ID, &item.CreatedAt); err != nil {
		return Item{}, fmt.Errorf("insert cart item: %w", err)
	}
	_, _ = s.pool.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, item.CartID)
	return item, nil
}

// DeleteItem removes a line. Returns pgx.ErrNoRows when nothing matched.
func (s *Store) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	_, _ = s.pool.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item               Item
		cfg, breakdownData []byte
	)
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductSlug, &item.ProductName,
		&item.Qty, &cfg, &breakdownData, &item.UnitPrice, &item.CreatedAt)
	if err != nil {
		return Item{}, err
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &item.Configuration); err != nil {
			return Item{}, fmt.Errorf("decode cart item configuration: %w", err)
		}
	}
	if len(breakdownData) > 0 {
		if err := json.Unmarshal(breakdownData, &item.Breakdown); err != nil {
			return Item{}, fmt.Errorf("decode cart item breakdown: %w", err)
		}
	}
	return item, nil
}
