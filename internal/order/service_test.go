package order_test

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
	"github.com/treeline-dev/backend-treeline/internal/order"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

type memOrders struct {
	orders map[uuid.UUID]order.Order
	items  map[uuid.UUID][]order.Item
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID]order.Order{}, items: map[uuid.UUID][]order.Item{}}
}

func (m *memOrders) Create(_ context.Context, o order.Order, items []order.Item) (order.Order, []order.Item, error) {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = o.ID
	}
	m.orders[o.ID] = o
	m.items[o.ID] = items
	return o, items, nil
}

func (m *memOrders) Get(_ context.Context, id uuid.UUID) (order.Order, []order.Item, error) {
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, nil, pgx.ErrNoRows
	}
	return o, m.items[id], nil
}

func (m *memOrders) List(_ context.Context, status string, limit, offset int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) Count(_ context.Context, status string) (int64, error) {
	rows, _ := m.List(context.Background(), status, 0, 0)
	return int64(len(rows)), nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status string) (order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, pgx.ErrNoRows
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return o, nil
}

type staticCarts struct {
	views map[uuid.UUID]cart.View
}

func (s *staticCarts) GetCart(_ context.Context, id uuid.UUID) (cart.View, error) {
	view, ok := s.views[id]
	if !ok {
		return cart.View{}, &common.AppError{Code: "NOT_FOUND", Message: "cart not found", HTTPStatus: 404}
	}
	return view, nil
}

type staticProducts struct {
	products map[string]catalog.Product
}

func (s *staticProducts) ProductForPricing(_ context.Context, slug string) (catalog.Product, error) {
	p, ok := s.products[slug]
	if !ok {
		return catalog.Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: 404}
	}
	return p, nil
}

func deskProduct(basePrice float64) catalog.Product {
	return catalog.Product{
		ID:        uuid.New(),
		Slug:      "writing-desk",
		Name:      "Writing Desk",
		Published: true,
		Pricing: pricing.Config{
			BasePrice: basePrice,
			Dimensions: map[string]pricing.DimensionRule{
				"width": {Min: 80, Max: 180, Default: 120, Step: 10, Multiplier: 2},
			},
			Options: map[string]pricing.OptionRule{
				"wax": {Available: true, Price: 25},
			},
		},
	}
}

func checkoutInput(cartID uuid.UUID) order.CheckoutInput {
	return order.CheckoutInput{
		CartID:        cartID,
		CustomerName:  "Dana",
		CustomerEmail: "dana@example.com",
		Address:       order.Address{Line1: "1 Cedar St", City: "Haifa", Country: "IL"},
	}
}

func newOrderService(t *testing.T, store *memOrders, carts *staticCarts, product catalog.Product) *order.Service {
	t.Helper()
	svc, err := order.NewService(order.ServiceConfig{
		Store:    store,
		Carts:    carts,
		Products: &staticProducts{products: map[string]catalog.Product{product.Slug: product}},
		Currency: "ILS",
	})
	require.NoError(t, err)
	return svc
}

func cartWithDesk(unitPrice float64) (uuid.UUID, *staticCarts) {
	cartID := uuid.New()
	view := cart.View{
		Cart: cart.Cart{ID: cartID},
		Items: []cart.Item{{
			ID:          uuid.New(),
			CartID:      cartID,
			ProductSlug: "writing-desk",
			ProductName: "Writing Desk",
			Qty:         2,
			Configuration: pricing.NormalizedConfig{
				Dimensions: map[string]float64{"width": 150},
				Options:    map[string]bool{"wax": true},
				Color:      pricing.ColorNatural,
			},
			UnitPrice: unitPrice,
		}},
	}
	return cartID, &staticCarts{views: map[uuid.UUID]cart.View{cartID: view}}
}

func TestCheckoutRepricesAtCurrentRules(t *testing.T) {
	// Cart line was priced when base was 100; base is now 200.
	cartID, carts := cartWithDesk(185)
	store := newMemOrders()
	svc := newOrderService(t, store, carts, deskProduct(200))

	view, err := svc.Checkout(context.Background(), checkoutInput(cartID))
	require.NoError(t, err)
	require.Equal(t, order.StatusNew, view.Status)
	require.Equal(t, "ILS", view.Currency)
	require.Len(t, view.Items, 1)

	// wood 200 + (150-120)*2 = 260, wax 25 → 285 per unit, qty 2
	require.InDelta(t, 285.0, view.Items[0].UnitPrice, 1e-9)
	require.InDelta(t, 570.0, view.TotalPrice, 1e-9)
	require.InDelta(t, 285.0, view.Items[0].Breakdown.TotalPrice, 1e-9)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	cartID := uuid.New()
	carts := &staticCarts{views: map[uuid.UUID]cart.View{cartID: {Cart: cart.Cart{ID: cartID}}}}
	svc := newOrderService(t, newMemOrders(), carts, deskProduct(100))

	_, err := svc.Checkout(context.Background(), checkoutInput(cartID))
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "CART_EMPTY", appErr.Code)
}

func TestCheckoutValidatesCustomerFields(t *testing.T) {
	cartID, carts := cartWithDesk(100)
	svc := newOrderService(t, newMemOrders(), carts, deskProduct(100))

	in := checkoutInput(cartID)
	in.CustomerEmail = "not-an-email"
	in.Address.City = ""
	_, err := svc.Checkout(context.Background(), in)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	cartID, carts := cartWithDesk(100)
	store := newMemOrders()
	svc := newOrderService(t, store, carts, deskProduct(100))

	view, err := svc.Checkout(context.Background(), checkoutInput(cartID))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), view.ID, "in_production")
	require.NoError(t, err)
	require.Equal(t, order.StatusInProduction, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), view.ID, order.StatusCompleted)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "INVALID_TRANSITION", appErr.Code)

	_, err = svc.UpdateStatus(context.Background(), view.ID, "TELEPORTED")
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestGetOrderUnknownID(t *testing.T) {
	cartID, carts := cartWithDesk(100)
	svc := newOrderService(t, newMemOrders(), carts, deskProduct(100))

	_, err := svc.GetOrder(context.Background(), cartID)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
