package obs

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics groups business-level collectors for the storefront.
type DomainMetrics struct {
	QuotesTotal    *prometheus.CounterVec
	OrdersTotal    prometheus.Counter
	OrderTotalsILS prometheus.Histogram
}

// NewDomainMetrics registers storefront domain collectors.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_quotes_total",
			Help:      "Price quote computations served, by outcome.",
		}, []string{"outcome"}),
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders accepted at checkout.",
		}),
		OrderTotalsILS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_price",
			Help:      "Distribution of accepted order totals.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
	registerCounter(reg, &m.QuotesTotal)
	if err := reg.Register(m.OrdersTotal); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				m.OrdersTotal = existing
			}
		}
	}
	if err := reg.Register(m.OrderTotalsILS); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				m.OrderTotalsILS = existing
			}
		}
	}
	return m
}

// ObserveQuote records a quote computation outcome ("ok" or "invalid_product").
func (m *DomainMetrics) ObserveQuote(outcome string) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(outcome).Inc()
}

// ObserveOrder records an accepted order and its total.
func (m *DomainMetrics) ObserveOrder(total float64) {
	if m == nil {
		return
	}
	m.OrdersTotal.Inc()
	m.OrderTotalsILS.Observe(total)
}
