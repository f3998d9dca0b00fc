package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// Store persists products in Postgres. Pricing rules live in JSONB columns so
// the rule schema can evolve without migrations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const productColumns = `id, slug, name, description, base_price, minimum_price,
	dimensions, options, color_options, published, created_at, updated_at`

// List returns a page of products ordered by creation time.
func (s *Store) List(ctx context.Context, onlyPublished bool, limit, offset int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if onlyPublished {
		query += ` WHERE published`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Count returns the total number of products matching the visibility filter.
func (s *Store) Count(ctx context.Context, onlyPublished bool) (int64, error) {
	query := `SELECT COUNT(*) FROM products`
	if onlyPublished {
		query += ` WHERE published`
	}
	var total int64
	if err := s.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// GetBySlug loads a single product. Returns pgx.ErrNoRows when absent.
func (s *Store) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanProduct(row)
}

// GetByID loads a single product by primary key.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// Insert stores a new product and returns it with generated fields filled in.
func (s *Store) Insert(ctx context.Context, p Product) (Product, error) {
	dims, opts, colors, err := marshalRules(p.Pricing)
	if err != nil {
		return Product{}, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (slug, name, description, base_price, minimum_price, dimensions, options, color_options, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productColumns,
		p.Slug, p.Name, p.Description, p.Pricing.BasePrice, p.Pricing.MinimumPrice, dims, opts, colors, p.Published)
	return scanProduct(row)
}

// Update rewrites the mutable columns of an existing product.
func (s *Store) Update(ctx context.Context, p Product) (Product, error) {
	dims, opts, colors, err := marshalRules(p.Pricing)
	if err != nil {
		return Product{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE products
		SET slug = $2, name = $3, description = $4, base_price = $5, minimum_price = $6,
			dimensions = $7, options = $8, color_options = $9, published = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Slug, p.Name, p.Description, p.Pricing.BasePrice, p.Pricing.MinimumPrice,
		dims, opts, colors, p.Published)
	return scanProduct(row)
}

// Delete removes a product. Returns pgx.ErrNoRows when nothing matched.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func marshalRules(cfg pricing.Config) (dims, opts, colors []byte, err error) {
	if dims, err = json.Marshal(cfg.Dimensions); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal dimensions: %w", err)
	}
	if opts, err = json.Marshal(cfg.Options); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal options: %w", err)
	}
	if colors, err = json.Marshal(cfg.Colors); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal color options: %w", err)
	}
	return dims, opts, colors, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p                  Product
		dims, opts, colors []byte
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description,
		&p.Pricing.BasePrice, &p.Pricing.MinimumPrice,
		&dims, &opts, &colors, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if len(dims) > 0 {
		if err := json.Unmarshal(dims, &p.Pricing.Dimensions); err != nil {
			return Product{}, fmt.Errorf("decode dimensions for %s: %w", p.Slug, err)
		}
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &p.Pricing.Options); err != nil {
			return Product{}, fmt.Errorf("decode options for %s: %w", p.Slug, err)
		}
	}
	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &p.Pricing.Colors); err != nil {
			return Product{}, fmt.Errorf("decode color options for %s: %w", p.Slug, err)
		}
	}
	return p, nil
}
