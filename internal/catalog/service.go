package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/treeline-dev/backend-treeline/internal/common"
	"github.com/treeline-dev/backend-treeline/internal/events"
	"github.com/treeline-dev/backend-treeline/internal/obs"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

type productStore interface {
	List(ctx context.Context, onlyPublished bool, limit, offset int) ([]Product, error)
	Count(ctx context.Context, onlyPublished bool) (int64, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates catalog queries, pricing, caching, and admin writes.
type Service struct {
	store        productStore
	cache        *Cache
	bus          *events.Bus
	metrics      *obs.DomainMetrics
	log          zerolog.Logger
	minimumRatio float64
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        productStore
	Cache        *Cache
	Bus          *events.Bus
	Metrics      *obs.DomainMetrics
	Logger       zerolog.Logger
	MinimumRatio float64
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	ratio := cfg.MinimumRatio
	if ratio <= 0 || ratio > 1 {
		ratio = pricing.DefaultMinimumPriceRatio
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		bus:          cfg.Bus,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
		minimumRatio: ratio,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// DefaultLimit exposes the configured page size for handlers.
func (s *Service) DefaultLimit() int { return s.defaultLimit }

// MaxLimit exposes the configured page size cap for handlers.
func (s *Service) MaxLimit() int { return s.maxLimit }

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

// ListProducts returns the published product list with pagination metadata.
// Only the first default page is cached; deeper pages hit storage directly.
func (s *Service) ListProducts(ctx context.Context, page, limit int) (ProductListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	cacheable := page == 1 && limit == s.defaultLimit
	if cacheable {
		var cached cachedList
		if ok, err := s.cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: page, Limit: limit}, nil
		}
	}

	total, err := s.store.Count(ctx, true)
	if err != nil {
		return ProductListResult{}, err
	}
	products, err := s.store.List(ctx, true, limit, (page-1)*limit)
	if err != nil {
		return ProductListResult{}, err
	}
	items := make([]ProductListItem, 0, len(products))
	for _, p := range products {
		items = append(items, listItem(p))
	}
	if cacheable {
		if err := s.cache.SetJSON(ctx, listCacheKey, cachedList{Items: items, Total: total}); err != nil {
			s.log.Warn().Err(err).Msg("cache product list")
		}
	}
	return ProductListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetProductDetail returns a published product with its rules and the price
// of its default configuration.
func (s *Service) GetProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, notFound("product not found")
	}
	var cached ProductDetail
	if ok, err := s.cache.GetJSON(ctx, detailKey(slug), &cached); err == nil && ok {
		return cached, nil
	}

	product, err := s.loadPublished(ctx, slug)
	if err != nil {
		return ProductDetail{}, err
	}
	breakdown, err := pricing.Quote(&product.Pricing, pricing.RawConfig{})
	if err != nil {
		return ProductDetail{}, s.invalidProduct(slug, err)
	}
	detail := ProductDetail{
		ID:               product.ID.String(),
		Slug:             product.Slug,
		Name:             product.Name,
		Description:      product.Description,
		Pricing:          product.Pricing,
		DefaultBreakdown: breakdown,
	}
	if err := s.cache.SetJSON(ctx, detailKey(slug), detail); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("cache product detail")
	}
	return detail, nil
}

// Quote prices a customer configuration against a published product's rules.
// Malformed input never fails here; it degrades to defaults inside the engine.
func (s *Service) Quote(ctx context.Context, slug string, raw pricing.RawConfig) (pricing.Breakdown, error) {
	product, err := s.loadPublished(ctx, slug)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	breakdown, err := pricing.Quote(&product.Pricing, raw)
	if err != nil {
		s.metrics.ObserveQuote("invalid_product")
		return pricing.Breakdown{}, s.invalidProduct(slug, err)
	}
	s.metrics.ObserveQuote("ok")
	return breakdown, nil
}

// ProductForPricing loads a product by slug for internal pricing use (cart,
// checkout). Unpublished products are rejected the same way as missing ones.
func (s *Service) ProductForPricing(ctx context.Context, slug string) (Product, error) {
	return s.loadPublished(ctx, slug)
}

// ProductInput carries admin-submitted product fields.
type ProductInput struct {
	Slug        string
	Name        string
	Description string
	Published   bool
	Pricing     pricing.Config
}

// ListAll returns every product, including unpublished drafts, for the admin UI.
func (s *Service) ListAll(ctx context.Context, page, limit int) (ProductListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	total, err := s.store.Count(ctx, false)
	if err != nil {
		return ProductListResult{}, err
	}
	products, err := s.store.List(ctx, false, limit, (page-1)*limit)
	if err != nil {
		return ProductListResult{}, err
	}
	items := make([]ProductListItem, 0, len(products))
	for _, p := range products {
		items = append(items, listItem(p))
	}
	return ProductListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetProduct loads a product by id for the admin UI, drafts included.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, notFound("product not found")
		}
		return Product{}, err
	}
	return product, nil
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	product, err := s.prepare(input)
	if err != nil {
		return Product{}, err
	}
	created, err := s.store.Insert(ctx, product)
	if err != nil {
		return Product{}, s.writeFailure(input.Slug, err)
	}
	s.afterWrite(ctx, created)
	return created, nil
}

// UpdateProduct validates and rewrites an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (Product, error) {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	product, err := s.prepare(input)
	if err != nil {
		return Product{}, err
	}
	product.ID = id
	updated, err := s.store.Update(ctx, product)
	if err != nil {
		return Product{}, s.writeFailure(input.Slug, err)
	}
	// The old slug may differ after a rename; both cache entries must go.
	s.invalidate(ctx, existing.Slug, updated.Slug)
	s.emitProductUpdated(ctx, updated)
	return updated, nil
}

// DeleteProduct removes a product and clears its cache entries.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("product not found")
		}
		return err
	}
	s.invalidate(ctx, existing.Slug)
	s.emitProductUpdated(ctx, existing)
	return nil
}

// Preview prices a candidate rule set without persisting it, so admins can
// check a draft before publishing.
func (s *Service) Preview(ctx context.Context, cfg pricing.Config, raw pricing.RawConfig) (pricing.Breakdown, error) {
	if err := s.checkRules(&cfg); err != nil {
		return pricing.Breakdown{}, err
	}
	cfg.MinimumRatio = s.minimumRatio
	breakdown, err := pricing.Quote(&cfg, raw)
	if err != nil {
		return pricing.Breakdown{}, &common.AppError{
			Code:       "VALIDATION_ERROR",
			Message:    "pricing rules are not usable",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
		}
	}
	return breakdown, nil
}

func (s *Service) prepare(input ProductInput) (Product, error) {
	slug := strings.TrimSpace(strings.ToLower(input.Slug))
	if slug == "" {
		return Product{}, &common.AppError{
			Code:       "VALIDATION_ERROR",
			Message:    "slug is required",
			HTTPStatus: http.StatusBadRequest,
		}
	}
	cfg := input.Pricing
	if err := s.checkRules(&cfg); err != nil {
		return Product{}, err
	}
	return Product{
		Slug:        slug,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Published:   input.Published,
		Pricing:     cfg,
	}, nil
}

func (s *Service) checkRules(cfg *pricing.Config) error {
	cfg.MinimumRatio = s.minimumRatio
	if err := NormalizeRules(cfg, true, s.log); err != nil {
		return ruleAppError(err)
	}
	if err := ValidateRules(cfg); err != nil {
		return ruleAppError(err)
	}
	return nil
}

// loadPublished fetches a product, runs the lenient ingestion pass over its
// stored rules, and hides drafts behind a 404.
func (s *Service) loadPublished(ctx context.Context, slug string) (Product, error) {
	product, err := s.store.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, notFound("product not found")
		}
		return Product{}, fmt.Errorf("load product %s: %w", slug, err)
	}
	if !product.Published {
		return Product{}, notFound("product not found")
	}
	if err := NormalizeRules(&product.Pricing, false, s.log.With().Str("slug", product.Slug).Logger()); err != nil {
		return Product{}, s.invalidProduct(slug, err)
	}
	product.Pricing.MinimumRatio = s.minimumRatio
	return product, nil
}

func (s *Service) afterWrite(ctx context.Context, p Product) {
	s.invalidate(ctx, p.Slug)
	s.emitProductUpdated(ctx, p)
}

func (s *Service) invalidate(ctx context.Context, slugs ...string) {
	keys := []string{listCacheKey}
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, detailKey(slug))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Strs("slugs", slugs).Msg("invalidate catalog cache")
	}
}

func (s *Service) emitProductUpdated(ctx context.Context, p Product) {
	if s.bus == nil {
		return
	}
	payload := map[string]any{"slug": p.Slug, "published": p.Published}
	if _, err := s.bus.Emit(ctx, events.TopicProductUpdated, p.ID, payload); err != nil {
		s.log.Error().Err(err).Str("slug", p.Slug).Msg("emit product.updated")
	}
}

func (s *Service) writeFailure(slug string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &common.AppError{
			Code:       "CONFLICT",
			Message:    fmt.Sprintf("slug %q is already in use", slug),
			HTTPStatus: http.StatusConflict,
			Err:        err,
		}
	}
	return err
}

func (s *Service) invalidProduct(slug string, err error) error {
	s.log.Error().Err(err).Str("slug", slug).Msg("product pricing rules unusable")
	return &common.AppError{
		Code:       "PRODUCT_INVALID",
		Message:    "product configuration is unavailable",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func ruleAppError(err error) error {
	appErr := &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "pricing rules are invalid",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		appErr.Details = map[string]any{"problems": ruleErr.Problems}
	}
	return appErr
}

func notFound(message string) error {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}
