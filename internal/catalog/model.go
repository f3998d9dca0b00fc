package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// Product is a configurable wooden-kit catalog entry. Its pricing rules are
// the single source of truth consumed by every price calculation.
type Product struct {
	ID          uuid.UUID      `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Published   bool           `json:"published"`
	Pricing     pricing.Config `json:"pricing"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ProductListItem is the compact representation used by list responses.
type ProductListItem struct {
	ID        string  `json:"id"`
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	BasePrice float64 `json:"basePrice"`
	Published bool    `json:"published"`
}

// ProductDetail is the public detail payload. The default breakdown gives the
// storefront an initial price before any slider moves.
type ProductDetail struct {
	ID               string            `json:"id"`
	Slug             string            `json:"slug"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Pricing          pricing.Config    `json:"pricing"`
	DefaultBreakdown pricing.Breakdown `json:"defaultBreakdown"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

func listItem(p Product) ProductListItem {
	return ProductListItem{
		ID:        p.ID.String(),
		Slug:      p.Slug,
		Name:      p.Name,
		BasePrice: pricing.Round2(p.Pricing.BasePrice),
		Published: p.Published,
	}
}
