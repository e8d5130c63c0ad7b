package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	checkoutsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_checkouts_in_flight",
			Help: "Orders currently waiting on the simulated submission delay",
		},
	)
)
