package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart mutations applied, by operation",
		},
		[]string{"operation"},
	)

	storeWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_store_write_failures_total",
			Help: "Snapshot writes that failed and were dropped, by operation (save or delete)",
		},
		[]string{"operation"},
	)

	snapshotsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_snapshots_rejected_total",
			Help: "Persisted carts discarded on load because they could not be decoded",
		},
	)
)
