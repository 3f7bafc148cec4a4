// Package metrics содержит метрики Prometheus для операций с балансом.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Названия операций с балансом.
const (
	OpPurchase     = "purchase"
	OpTopUpRequest = "topup_request"
	OpTopUpApprove = "topup_approve"
	OpTopUpReject  = "topup_reject"
	OpGiftCard     = "giftcard_redeem"
)

// Ledger собирает метрики операций, изменяющих баланс.
type Ledger struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	amount   *prometheus.CounterVec
}

// NewLedger регистрирует метрики в указанном регистре. При nil возвращает no-op экземпляр.
func NewLedger(reg prometheus.Registerer) *Ledger {
	if reg == nil {
		return &Ledger{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of balance-affecting operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Balance-affecting operations by outcome.",
	}, []string{"operation", "outcome"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_amount_tnd_total",
		Help: "Sum of successfully applied amounts in TND.",
	}, []string{"operation"})
	reg.MustRegister(duration, outcomes, amount)
	return &Ledger{
		duration: duration,
		outcomes: outcomes,
		amount:   amount,
	}
}

// Observe фиксирует длительность и исход операции.
func (l *Ledger) Observe(op, outcome string, d time.Duration) {
	if l == nil || l.duration == nil {
		return
	}
	op = normalizeLabel(op)
	l.duration.WithLabelValues(op).Observe(d.Seconds())
	l.outcomes.WithLabelValues(op, normalizeLabel(outcome)).Inc()
}

// AddAmount увеличивает сумму успешно проведённых операций.
func (l *Ledger) AddAmount(op string, amount float64) {
	if l == nil || l.amount == nil || amount <= 0 {
		return
	}
	l.amount.WithLabelValues(normalizeLabel(op)).Add(amount)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
