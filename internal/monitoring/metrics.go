// Package monitoring exposes Prometheus instruments for the booking core.
// Metrics are registered on the default registry and served from /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	holdsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_holds_total",
			Help: "Seat hold attempts by outcome (granted, conflict, rejected, error)",
		},
		[]string{"outcome"},
	)

	seatConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_seat_conflicts_total",
			Help: "Individual seats that lost a first-committer-wins race",
		},
	)

	confirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_confirmations_total",
			Help: "Payment confirmations by outcome (confirmed, duplicate, declined, expired)",
		},
		[]string{"outcome"},
	)

	sweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweeps_total",
			Help: "Completed expiry sweep passes",
		},
	)

	expiredHoldsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_expired_holds_total",
			Help: "Reservations moved to EXPIRED by the sweeper or lazy expiry",
		},
	)
)

// HoldOutcome counts one seat hold attempt.
func HoldOutcome(outcome string) { holdsTotal.WithLabelValues(outcome).Inc() }

// SeatConflicts counts seats that were requested but already taken.
func SeatConflicts(n int) { seatConflictsTotal.Add(float64(n)) }

// ConfirmOutcome counts one payment confirmation attempt.
func ConfirmOutcome(outcome string) { confirmationsTotal.WithLabelValues(outcome).Inc() }

// SweepDone counts one sweep pass and the holds it expired.
func SweepDone(expired int) {
	sweepsTotal.Inc()
	expiredHoldsTotal.Add(float64(expired))
}

// HoldExpired counts a single lazily expired hold.
func HoldExpired() { expiredHoldsTotal.Inc() }
