// Package metrics exposes the booking counters scraped from /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Booking groups the counters updated by the booking service.
type Booking struct {
	Created              *prometheus.CounterVec
	Conflicts            prometheus.Counter
	InsufficientCredit   prometheus.Counter
	Cancelled            *prometheus.CounterVec
	Ledger               *prometheus.CounterVec
	CompensationFailures prometheus.Counter
	AvailabilityCache    *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultSet  *Booking
)

// Default returns the process-wide counters registered on the default
// prometheus registry.
func Default() *Booking {
	defaultOnce.Do(func() {
		defaultSet = New(prometheus.DefaultRegisterer)
	})
	return defaultSet
}

// New builds a fresh counter set and registers it on reg.  Tests pass a
// private registry so counters start from zero.
func New(reg prometheus.Registerer) *Booking {
	b := &Booking{
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "booking",
			Name:      "reservations_created_total",
			Help:      "Reservation rows created, by requester kind (member or guest).",
		}, []string{"kind"}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Booking attempts rejected because a requested slot was taken.",
		}),
		InsufficientCredit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "booking",
			Name:      "insufficient_credit_total",
			Help:      "Member booking attempts rejected for lack of credits.",
		}),
		Cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Cancel requests, by outcome (cancelled or replayed).",
		}, []string{"outcome"}),
		Ledger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "booking",
			Name:      "ledger_transitions_total",
			Help:      "Successful payment ledger transitions, by operation (pay or refund).",
		}, []string{"op"}),
		CompensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "booking",
			Name:      "credit_compensation_failures_total",
			Help:      "Credit restores that failed after a booking insert failed; each one is a balance discrepancy to audit.",
		}),
		AvailabilityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "court",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups, by result (hit, miss or error).",
		}, []string{"result"}),
	}
	reg.MustRegister(
		b.Created,
		b.Conflicts,
		b.InsufficientCredit,
		b.Cancelled,
		b.Ledger,
		b.CompensationFailures,
		b.AvailabilityCache,
	)
	return b
}
