package analytics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/treeline-dev/backend-treeline/internal/analytics"
)

func cachedOverview(t *testing.T, rdb *redis.Client, overview analytics.Overview) {
	t.Helper()
	data, err := json.Marshal(overview)
	require.NoError(t, err)
	require.NoError(t, rdb.Set(context.Background(), "an:overview", data, time.Minute).Err())
}

func TestGetOverviewServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	want := analytics.Overview{
		TotalOrders:   12,
		TotalRevenue:  4480.5,
		OrdersByState: map[string]int64{"NEW": 3, "COMPLETED": 9},
		ProductCount:  5,
	}
	cachedOverview(t, rdb, want)

	svc := &analytics.Service{R: rdb, TTL: time.Minute}
	got, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.TotalOrders, got.TotalOrders)
	require.Equal(t, want.TotalRevenue, got.TotalRevenue)
	require.Equal(t, want.OrdersByState, got.OrdersByState)
}

func TestGetOverviewWithoutDatabase(t *testing.T) {
	svc := &analytics.Service{}
	_, err := svc.GetOverview(context.Background())
	require.Error(t, err)
}

func TestOverviewHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cachedOverview(t, rdb, analytics.Overview{TotalOrders: 2, TotalRevenue: 900})

	h := &analytics.Handler{Svc: &analytics.Service{R: rdb, TTL: time.Minute}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	rec := httptest.NewRecorder()
	h.Overview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data analytics.Overview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 2, body.Data.TotalOrders)
	require.InDelta(t, 900, body.Data.TotalRevenue, 0.001)
}
