package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ListingsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "auctionex",
			Name:      "listings_active",
			Help:      "Number of active listings per house.",
		},
		[]string{"house"},
	)

	SalesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auctionex",
			Name:      "sales_total",
			Help:      "Total number of completed sales.",
		},
		[]string{"house", "kind"}, // kind: sold/buyout/commodity
	)

	BuyFailTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auctionex",
			Name:      "commodity_buy_fail_total",
			Help:      "Total number of rejected commodity purchases.",
		},
		[]string{"house", "reason"},
	)

	ThrottleBlockTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auctionex",
			Name:      "query_throttle_block_total",
			Help:      "Total number of throttled query requests.",
		},
		[]string{"kind"}, // kind: query/replicate
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "auctionex",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one registry update tick.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(ListingsActive, SalesTotal, BuyFailTotal, ThrottleBlockTotal, TickDuration)
}
