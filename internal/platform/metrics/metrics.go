package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the storefront critical paths: cart
// mutation volume, order placement outcomes, and catalog fallbacks.
type Metrics struct {
	CartMutations   *prometheus.CounterVec
	OrdersPlaced    prometheus.Counter
	OrdersFailed    prometheus.Counter
	CatalogFallback prometheus.Counter
}

// New creates a Metrics instance with all collectors registered against the
// supplied registerer. Pass prometheus.DefaultRegisterer in production and a
// fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		CartMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sia_cart_mutations_total",
			Help: "Total cart mutations by operation (add, remove, set_quantity, clear)",
		}, []string{"op"}),
		OrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "sia_orders_placed_total",
			Help: "Total orders placed successfully",
		}),
		OrdersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sia_orders_failed_total",
			Help: "Total order submissions rejected by the order backend",
		}),
		CatalogFallback: factory.NewCounter(prometheus.CounterOpts{
			Name: "sia_catalog_fallback_total",
			Help: "Total catalog reads served from the built-in sample set",
		}),
	}
}

// IncrementCartMutation records one cart mutation of the given operation.
func (m *Metrics) IncrementCartMutation(op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
}

// IncrementOrdersPlaced records a successful order placement.
func (m *Metrics) IncrementOrdersPlaced() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
}

// IncrementOrdersFailed records a failed order submission.
func (m *Metrics) IncrementOrdersFailed() {
	if m == nil {
		return
	}
	m.OrdersFailed.Inc()
}

// IncrementCatalogFallback records a catalog read served from sample data.
func (m *Metrics) IncrementCatalogFallback() {
	if m == nil {
		return
	}
	m.CatalogFallback.Inc()
}
