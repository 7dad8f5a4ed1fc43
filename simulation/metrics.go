package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starksim",
			Name:      "transactions_total",
			Help:      "Total number of transactions executed by simulations",
		},
		[]string{"operation", "outcome"},
	)
	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "starksim",
		Name:      "batch_duration_seconds",
		Help:      "Duration of simulation calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

const (
	opEstimateFee        = "estimate_fee"
	opEstimateMessageFee = "estimate_message_fee"
	opSimulate           = "simulate_transactions"
	opSimulateMessage    = "simulate_message"
	opReExecute          = "re_execute_transactions"
)

const outcomeReverted = "reverted"

func countTransaction(operation string, err error) {
	transactionsCounter.WithLabelValues(operation, Classify(err).String()).Inc()
}
