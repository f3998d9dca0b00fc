package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const overviewCacheKey = "an:overview"

// Overview summarises the shop for the admin dashboard.
type Overview struct {
	TotalOrders   int64            `json:"totalOrders"`
	TotalRevenue  float64          `json:"totalRevenue"`
	OrdersByState map[string]int64 `json:"ordersByStatus"`
	ProductCount  int64            `json:"productCount"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}

// Service provides cached order statistics. Revenue only counts orders that
// were not cancelled.
type Service struct {
	Pool *pgxpool.Pool
	R    *redis.Client
	TTL  time.Duration
	Now  func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GetOverview returns aggregate shop statistics, cached for the configured TTL.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}
	if s.Pool == nil {
		return Overview{}, fmt.Errorf("analytics service not configured")
	}

	var overview Overview
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_price) FILTER (WHERE status <> 'CANCELLED'), 0)
		FROM orders`).
		Scan(&overview.TotalOrders, &overview.TotalRevenue)
	if err != nil {
		return Overview{}, fmt.Errorf("aggregate orders: %w", err)
	}

	rows, err := s.Pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Overview{}, fmt.Errorf("orders by status: %w", err)
	}
	defer rows.Close()
	overview.OrdersByState = map[string]int64{}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Overview{}, err
		}
		overview.OrdersByState[status] = count
	}
	if err := rows.Err(); err != nil {
		return Overview{}, err
	}

	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE published`).
		Scan(&overview.ProductCount); err != nil {
		return Overview{}, fmt.Errorf("count products: %w", err)
	}

	overview.GeneratedAt = s.now()
	s.store(ctx, overview)
	return overview, nil
}

func (s *Service) fromCache(ctx context.Context) (Overview, bool) {
	if s.R == nil {
		return Overview{}, false
	}
	data, err := s.R.Get(ctx, overviewCacheKey).Bytes()
	if err != nil {
		return Overview{}, false
	}
	var overview Overview
	if err := json.Unmarshal(data, &overview); err != nil {
		return Overview{}, false
	}
	return overview, true
}

func (s *Service) store(ctx context.Context, overview Overview) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(overview)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, overviewCacheKey, data, s.TTL).Err()
}
