package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/treeline-dev/backend-treeline/internal/cart"
	"github.com/treeline-dev/backend-treeline/internal/catalog"
	"github.com/treeline-dev/backend-treeline/internal/common"
	"github.com/treeline-dev/backend-treeline/internal/events"
	"github.com/treeline-dev/backend-treeline/internal/obs"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// Order lifecycle. An order enters as StatusNew; admins advance it.
const (
	StatusNew          = "NEW"
	StatusInProduction = "IN_PRODUCTION"
	StatusShipped      = "SHIPPED"
	StatusCompleted    = "COMPLETED"
	StatusCancelled    = "CANCELLED"
)

var statusTransitions = map[string][]string{
	StatusNew:          {StatusInProduction, StatusCancelled},
	StatusInProduction: {StatusShipped, StatusCancelled},
	StatusShipped:      {StatusCompleted},
	StatusCompleted:    {},
	StatusCancelled:    {},
}

type orderStore interface {
	Create(ctx context.Context, o Order, items []Item) (Order, []Item, error)
	Get(ctx context.Context, id uuid.UUID) (Order, []Item, error)
	List(ctx context.Context, status string, limit, offset int) ([]Order, error)
	Count(ctx context.Context, status string) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Order, error)
}

type cartProvider interface {
	GetCart(ctx context.Context, id uuid.UUID) (cart.View, error)
}

type productProvider interface {
	ProductForPricing(ctx context.Context, slug string) (catalog.Product, error)
}

type locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service turns carts into orders and manages the order lifecycle.
type Service struct {
	store    orderStore
	carts    cartProvider
	products productProvider
	locks    locker
	bus      *events.Bus
	metrics  *obs.DomainMetrics
	log      zerolog.Logger
	currency string
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    orderStore
	Carts    cartProvider
	Products productProvider
	Locks    locker
	Bus      *events.Bus
	Metrics  *obs.DomainMetrics
	Logger   zerolog.Logger
	Currency string
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("order: store is required")
	}
	if cfg.Carts == nil {
		return nil, errors.New("order: cart provider is required")
	}
	if cfg.Products == nil {
		return nil, errors.New("order: product provider is required")
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "ILS"
	}
	return &Service{
		store:    cfg.Store,
		carts:    cfg.Carts,
		products: cfg.Products,
		locks:    cfg.Locks,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		currency: currency,
	}, nil
}

// CheckoutInput carries the customer-facing checkout payload.
type CheckoutInput struct {
	CartID        uuid.UUID
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Address       Address
	Notes         *string
}

// View is an order with its lines.
type View struct {
	Order
	Items []Item `json:"items"`
}

// Checkout reprices every cart line against current catalog rules and records
// the order. A cart priced yesterday is charged at today's prices; clients see
// the repriced breakdown in the response. When a locker is configured, the
// cart is locked for the duration so concurrent submissions cannot both land.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (View, error) {
	if err := validateCheckout(in); err != nil {
		return View{}, err
	}
	if s.locks == nil {
		return s.checkout(ctx, in)
	}
	var view View
	err := s.locks.WithLock(ctx, "checkout:cart:"+in.CartID.String(), 15*time.Second, func(ctx context.Context) error {
		var lockErr error
		view, lockErr = s.checkout(ctx, in)
		return lockErr
	})
	return view, err
}

func (s *Service) checkout(ctx context.Context, in CheckoutInput) (View, error) {
	cartView, err := s.carts.GetCart(ctx, in.CartID)
	if err != nil {
		return View{}, err
	}
	if len(cartView.Items) == 0 {
		return View{}, &common.AppError{
			Code:       "CART_EMPTY",
			Message:    "cart has no items",
			HTTPStatus: http.StatusUnprocessableEntity,
		}
	}

	items := make([]Item, 0, len(cartView.Items))
	var total float64
	for _, line := range cartView.Items {
		product, err := s.products.ProductForPricing(ctx, line.ProductSlug)
		if err != nil {
			return View{}, err
		}
		normalized, err := pricing.Validate(&product.Pricing, rawFromNormalized(line.Configuration))
		if err != nil {
			return View{}, err
		}
		breakdown, err := pricing.Calculate(&product.Pricing, normalized)
		if err != nil {
			return View{}, err
		}
		items = append(items, Item{
			ProductID:     product.ID,
			ProductSlug:   product.Slug,
			ProductName:   product.Name,
			Qty:           line.Qty,
			Configuration: normalized,
			Breakdown:     breakdown,
			UnitPrice:     breakdown.TotalPrice,
		})
		total += breakdown.TotalPrice * float64(line.Qty)
	}
	total = pricing.Round2(total)

	cartID := cartView.ID
	created, createdItems, err := s.store.Create(ctx, Order{
		CartID:        &cartID,
		Status:        StatusNew,
		Currency:      s.currency,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(strings.ToLower(in.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		Address:       in.Address,
		Notes:         in.Notes,
		TotalPrice:    total,
	}, items)
	if err != nil {
		return View{}, fmt.Errorf("create order: %w", err)
	}

	s.metrics.ObserveOrder(created.TotalPrice)
	s.emit(ctx, events.TopicOrderCreated, created.ID, map[string]any{
		"orderId": created.ID.String(),
		"total":   created.TotalPrice,
		"email":   created.CustomerEmail,
	})
	return View{Order: created, Items: createdItems}, nil
}

// GetOrder loads an order for the confirmation page.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (View, error) {
	o, items, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, notFound()
		}
		return View{}, err
	}
	if items == nil {
		items = []Item{}
	}
	return View{Order: o, Items: items}, nil
}

// ListResult is a page of orders for the admin UI.
type ListResult struct {
	Orders []Order
	Total  int64
	Page   int
	Limit  int
}

// ListOrders returns orders for the admin UI, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, status string, page, limit int) (ListResult, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" {
		if _, ok := statusTransitions[status]; !ok {
			return ListResult{}, invalidStatus(status)
		}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	total, err := s.store.Count(ctx, status)
	if err != nil {
		return ListResult{}, err
	}
	orders, err := s.store.List(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return ListResult{}, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return ListResult{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus advances the order lifecycle, rejecting illegal transitions.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := statusTransitions[status]; !ok {
		return Order{}, invalidStatus(status)
	}
	current, _, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, notFound()
		}
		return Order{}, err
	}
	if !transitionAllowed(current.Status, status) {
		return Order{}, &common.AppError{
			Code:       "INVALID_TRANSITION",
			Message:    fmt.Sprintf("cannot move order from %s to %s", current.Status, status),
			HTTPStatus: http.StatusConflict,
		}
	}
	updated, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.TopicOrderStatusChanged, updated.ID, map[string]any{
		"orderId": updated.ID.String(),
		"from":    current.Status,
		"to":      updated.Status,
	})
	return updated, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload map[string]any) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("emit order event")
	}
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func rawFromNormalized(cfg pricing.NormalizedConfig) pricing.RawConfig {
	dims := make(map[string]any, len(cfg.Dimensions))
	for key, value := range cfg.Dimensions {
		dims[key] = value
	}
	return pricing.RawConfig{Dimensions: dims, Options: cfg.Options, Color: cfg.Color}
}

func validateCheckout(in CheckoutInput) error {
	problems := []string{}
	if strings.TrimSpace(in.CustomerName) == "" {
		problems = append(problems, "customerName is required")
	}
	email := strings.TrimSpace(in.CustomerEmail)
	if email == "" || !strings.Contains(email, "@") {
		problems = append(problems, "customerEmail must be a valid email")
	}
	if strings.TrimSpace(in.Address.Line1) == "" {
		problems = append(problems, "address.line1 is required")
	}
	if strings.TrimSpace(in.Address.City) == "" {
		problems = append(problems, "address.city is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid checkout payload",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"problems": problems},
	}
}

func invalidStatus(status string) error {
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("unknown order status %q", status),
		HTTPStatus: http.StatusBadRequest,
	}
}

func notFound() error {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    "order not found",
		HTTPStatus: http.StatusNotFound,
	}
}
