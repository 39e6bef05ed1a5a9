package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Card transaction metrics
	cardTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_transactions_total",
		Help: "Total number of persisted card transactions",
	}, []string{
		"processor_type",   // aurus, transbank, kushki, sandbox
		"transaction_type", // SALE, DEFERRED, PREAUTHORIZATION, ...
		"status",           // APPROVAL, DECLINED
		"response_code",
	})

	// Processor invocation metrics
	processorCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "processor_call_duration_seconds",
		Help: "Time spent waiting on an acquirer",
		// Buckets: 100ms to 30s (typical acquirer latencies)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"processor_type",
		"outcome", // ok, rejected, unreachable
	})

	processorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "processor_errors_total",
		Help: "Classified acquirer errors",
	}, []string{
		"processor_name",
		"code",
		"category", // homologated category of the code
		"verdict",  // fail, ignore, failover
	})

	failoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "processor_failovers_total",
		Help: "Transactions re-routed to a failover processor",
	}, []string{
		"from_processor",
	})

	amountMismatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amount_mismatch_total",
		Help: "Approved sales whose approved amount differs from the requested amount beyond the threshold",
	}, []string{
		"processor_name",
	})

	creditTypeTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deferred_credit_type_truncated_total",
		Help: "Deferred credit types longer than 2 characters that were truncated",
	})

	binCorrectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bin_card_type_corrections_total",
		Help: "Bin card-type side-table correction attempts",
	}, []string{
		"status", // corrected, unchanged, throttled, failed
	})

	subscriptionAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_attempt_events_total",
		Help: "Subscription-attempt failure events emitted",
	}, []string{
		"status", // published, failed
	})

	duplicateWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_duplicate_writes_total",
		Help: "Conditional transaction writes rejected because the id exists",
	}, []string{
		"kind", // benign, conflict
	})
)

// RecordTransaction records a persisted card transaction
func RecordTransaction(processorType, transactionType, status, responseCode string) {
	cardTransactionsTotal.WithLabelValues(processorType, transactionType, status, responseCode).Inc()
}

// RecordProcessorCall records the latency and outcome of one acquirer invocation
func RecordProcessorCall(processorType, outcome string, duration float64) {
	processorCallDuration.WithLabelValues(processorType, outcome).Observe(duration)
}

// RecordProcessorError records a classified acquirer error
func RecordProcessorError(processorName, code, category, verdict string) {
	processorErrorsTotal.WithLabelValues(processorName, code, category, verdict).Inc()
}

// RecordFailover records a failover re-route
func RecordFailover(fromProcessor string) {
	failoversTotal.WithLabelValues(fromProcessor).Inc()
}

// RecordAmountMismatch records an approved sale failing the amount audit
func RecordAmountMismatch(processorName string) {
	amountMismatchTotal.WithLabelValues(processorName).Inc()
}

// RecordCreditTypeTruncated records a truncated deferred credit type
func RecordCreditTypeTruncated() {
	creditTypeTruncatedTotal.Inc()
}

// RecordBinCorrection records a bin card-type correction attempt
func RecordBinCorrection(status string) {
	binCorrectionsTotal.WithLabelValues(status).Inc()
}

// RecordSubscriptionAttempt records a subscription-attempt event emission
func RecordSubscriptionAttempt(status string) {
	subscriptionAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordDuplicateWrite records a failed conditional write
func RecordDuplicateWrite(kind string) {
	duplicateWritesTotal.WithLabelValues(kind).Inc()
}
