package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_reservations_created_total",
		Help: "Total number of successful stock reservations",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_failed_total",
		Help: "Total number of failed stock reservations",
	}, []string{"reason"})

	StockCommitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_commits_total",
		Help: "Total number of orders whose reserved stock was committed",
	})

	StockReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_releases_total",
		Help: "Total number of orders whose reserved stock was released",
	})

	StockTransfersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_transfers_total",
		Help: "Total number of inter-location stock transfers",
	})

	StockAddedUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_added_units_total",
		Help: "Total units of stock added to the ledger",
	})

	ReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reserve_latency_seconds",
		Help:    "Latency of stock reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	CountsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_counts_submitted_total",
		Help: "Total number of stock counts applied to the ledger",
	})

	CountsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_counts_rejected_total",
		Help: "Total number of stock count submissions rejected",
	}, []string{"reason"})

	CountVarianceUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_count_variance_units_total",
		Help: "Total absolute units of variance recorded by stock counts",
	})

	CountSubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_count_submit_latency_seconds",
		Help:    "Latency of stock count submissions",
		Buckets: prometheus.DefBuckets,
	})

	OverReservationAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_over_reservation_alerts_total",
		Help: "Total number of ledger rows a count left with reserved stock exceeding on-hand",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
