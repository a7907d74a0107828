package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration is observed by the router for every request.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "A histogram of request latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)

	// AuthAttempts counts authentication flow outcomes by flow and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_auth_attempts_total",
			Help: "Authentication flow outcomes.",
		},
		[]string{"flow", "result"},
	)

	MailJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_mail_jobs_total",
			Help: "Outgoing mail jobs by kind and result.",
		},
		[]string{"kind", "result"},
	)
)
