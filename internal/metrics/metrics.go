package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the settlement pipeline. Webhook deliveries are labeled by
// outcome so redeliveries and rejected signatures are visible separately.
var (
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presale",
		Name:      "webhook_deliveries_total",
		Help:      "Gateway webhook deliveries by outcome.",
	}, []string{"outcome"})

	CreditsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presale",
		Name:      "credits_issued_total",
		Help:      "On-chain allocation credits confirmed.",
	})

	CreditsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presale",
		Name:      "credits_failed_total",
		Help:      "On-chain allocation credits that failed and await retry.",
	})

	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "presale",
		Name:      "invoices_created_total",
		Help:      "Hosted invoices opened at the payment gateway.",
	})

	RolloverRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presale",
		Name:      "rollover_runs_total",
		Help:      "Daily pricing rollover attempts by outcome.",
	}, []string{"outcome"})
)

// Webhook delivery outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)
