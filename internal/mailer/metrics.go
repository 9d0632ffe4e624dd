package mailer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mailSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_mail_sent_total",
		Help: "Emails delivered successfully, by transport.",
	}, []string{"transport"})

	mailFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_mail_failed_total",
		Help: "Emails that failed after exhausting retries, by transport.",
	}, []string{"transport"})

	mailRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_mail_retries_total",
		Help: "Individual send retries, by transport.",
	}, []string{"transport"})

	dispatchBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_dispatch_batches_total",
		Help: "Batch dispatches executed, by transport.",
	}, []string{"transport"})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_dispatch_duration_seconds",
		Help:    "Wall time of one batch dispatch.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"transport"})
)
