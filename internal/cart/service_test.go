package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/treeline-dev/backend-treeline/internal/cart"
	"github.com/treeline-dev/backend-treeline/internal/catalog"
	"github.com/treeline-dev/backend-treeline/internal/common"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

type memoryStore struct {
	carts map[uuid.UUID]cart.Cart
	items map[uuid.UUID][]cart.Item
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		carts: map[uuid.UUID]cart.Cart{},
		items: map[uuid.UUID][]cart.Item{},
	}
}

func (m *memoryStore) CreateCart(context.Context) (cart.Cart, error) {
	c := cart.Cart{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.carts[c.ID] = c
	return c, nil
}

func (m *memoryStore) GetCart(_ context.Context, id uuid.UUID) (cart.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return cart.Cart{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memoryStore) ListItems(_ context.Context, cartID uuid.UUID) ([]cart.Item, error) {
	return m.items[cartID], nil
}

func (m *memoryStore) InsertItem(_ context.Context, item cart.Item) (cart.Item, error) {
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	m.items[item.CartID] = append(m.items[item.CartID], item)
	return item, nil
}

func (m *memoryStore) DeleteItem(_ context.Context, cartID, itemID uuid.UUID) error {
	lines := m.items[cartID]
	for i, item := range lines {
		if item.ID == itemID {
			m.items[cartID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type staticCatalog struct {
	products map[string]catalog.Product
}

func (s *staticCatalog) ProductForPricing(_ context.Context, slug string) (catalog.Product, error) {
	p, ok := s.products[slug]
	if !ok {
		return catalog.Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: 404}
	}
	return p, nil
}

func benchProduct() catalog.Product {
	return catalog.Product{
		ID:        uuid.New(),
		Slug:      "garden-bench",
		Name:      "Garden Bench",
		Published: true,
		Pricing: pricing.Config{
			BasePrice: 200,
			Dimensions: map[string]pricing.DimensionRule{
				"width": {Min: 100, Max: 240, Default: 160, Step: 20, Multiplier: 1.5},
			},
			Options: map[string]pricing.OptionRule{
				"lacquer": {Available: true, Price: 40},
			},
		},
	}
}

func newCartService(t *testing.T) (*cart.Service, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	svc, err := cart.NewService(store, &staticCatalog{products: map[string]catalog.Product{
		"garden-bench": benchProduct(),
	}})
	require.NoError(t, err)
	return svc, store
}

func TestAddItemPricesServerSide(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	created, err := svc.CreateCart(ctx)
	require.NoError(t, err)

	view, err := svc.AddItem(ctx, created.ID, "garden-bench", 2, pricing.RawConfig{
		Dimensions: map[string]any{"width": 200},
		Options:    map[string]bool{"lacquer": true},
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	item := view.Items[0]
	// wood 200 + (200-160)*1.5 = 260, lacquer 40
	require.InDelta(t, 300.0, item.UnitPrice, 1e-9)
	require.InDelta(t, 300.0, item.Breakdown.TotalPrice, 1e-9)
	require.InDelta(t, 200.0, item.Configuration.Dimensions["width"], 1e-9)
	require.InDelta(t, 600.0, view.TotalPrice, 1e-9)
}

func TestAddItemClampsOutOfRangeInput(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	created, err := svc.CreateCart(ctx)
	require.NoError(t, err)

	view, err := svc.AddItem(ctx, created.ID, "garden-bench", 1, pricing.RawConfig{
		Dimensions: map[string]any{"width": 9999},
	})
	require.NoError(t, err)
	require.InDelta(t, 240.0, view.Items[0].Configuration.Dimensions["width"], 1e-9)
}

func TestAddItemRejectsBadQty(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()
	created, err := svc.CreateCart(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, created.ID, "garden-bench", 0, pricing.RawConfig{})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.AddItem(ctx, created.ID, "garden-bench", 51, pricing.RawConfig{})
	require.Error(t, err)
}

func TestAddItemUnknownCart(t *testing.T) {
	svc, _ := newCartService(t)
	_, err := svc.AddItem(context.Background(), uuid.New(), "garden-bench", 1, pricing.RawConfig{})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()
	created, err := svc.CreateCart(ctx)
	require.NoError(t, err)

	view, err := svc.AddItem(ctx, created.ID, "garden-bench", 1, pricing.RawConfig{})
	require.NoError(t, err)
	view, err = svc.AddItem(ctx, created.ID, "garden-bench", 1, pricing.RawConfig{
		Options: map[string]bool{"lacquer": true},
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	require.InDelta(t, 440.0, view.TotalPrice, 1e-9)

	view, err = svc.RemoveItem(ctx, created.ID, view.Items[1].ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.InDelta(t, 200.0, view.TotalPrice, 1e-9)
}
