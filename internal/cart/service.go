package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/treeline-dev/backend-treeline/internal/catalog"
	"github.com/treeline-dev/backend-treeline/internal/common"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

const maxItemQty = 50

type cartStore interface {
	CreateCart(ctx context.Context) (Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	InsertItem(ctx context.Context, item Item) (Item, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
}

type productProvider interface {
	ProductForPricing(ctx context.Context, slug string) (catalog.Product, error)
}

// Service encapsulates cart domain operations. Every line added to a cart is
// priced server-side from current catalog rules; the client never sends a price.
type Service struct {
	store    cartStore
	products productProvider
}

// NewService constructs a Service.
func NewService(store cartStore, products productProvider) (*Service, error) {
	if store == nil {
		return nil, errors.New("cart: store is required")
	}
	if products == nil {
		return nil, errors.New("cart: product provider is required")
	}
	return &Service{store: store, products: products}, nil
}

// View aggregates cart metadata, its lines, and the server-computed total.
type View struct {
	Cart
	Items      []Item  `json:"items"`
	TotalPrice float64 `json:"totalPrice"`
}

// CreateCart starts an empty anonymous cart.
func (s *Service) CreateCart(ctx context.Context) (Cart, error) {
	return s.store.CreateCart(ctx)
}

// GetCart loads a cart with its lines and total.
func (s *Service) GetCart(ctx context.Context, id uuid.UUID) (View, error) {
	cart, err := s.store.GetCart(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, notFound("cart not found")
		}
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		return View{}, err
	}
	return assemble(cart, items), nil
}

// AddItem prices a configured product and appends it to the cart.
func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, slug string, qty int, raw pricing.RawConfig) (View, error) {
	if qty < 1 || qty > maxItemQty {
		return View{}, &common.AppError{
			Code:       "VALIDATION_ERROR",
			Message:    fmt.Sprintf("qty must be between 1 and %d", maxItemQty),
			HTTPStatus: http.StatusBadRequest,
		}
	}
	cart, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, notFound("cart not found")
		}
		return View{}, fmt.Errorf("load cart: %w", err)
	}

	product, err := s.products.ProductForPricing(ctx, slug)
	if err != nil {
		return View{}, err
	}
	normalized, err := pricing.Validate(&product.Pricing, raw)
	if err != nil {
		return View{}, err
	}
	breakdown, err := pricing.Calculate(&product.Pricing, normalized)
	if err != nil {
		return View{}, err
	}

	_, err = s.store.InsertItem(ctx, Item{
		CartID:        cart.ID,
		ProductID:     product.ID,
		Qty:           qty,
		Configuration: normalized,
		Breakdown:     breakdown,
		UnitPrice:     breakdown.TotalPrice,
	})
	if err != nil {
		return View{}, err
	}
	return s.GetCart(ctx, cart.ID)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (View, error) {
	if err := s.store.DeleteItem(ctx, cartID, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, notFound("cart item not found")
		}
		return View{}, err
	}
	return s.GetCart(ctx, cartID)
}

func assemble(cart Cart, items []Item) View {
	view := View{Cart: cart, Items: items}
	if view.Items == nil {
		view.Items = []Item{}
	}
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Qty)
	}
	view.TotalPrice = pricing.Round2(total)
	return view
}

func notFound(message string) error {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}
