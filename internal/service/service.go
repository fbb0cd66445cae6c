// Package service implements the court booking core: availability, the
// reservation write path with its credit debit and compensation, the
// cancellation state machine and the payment ledger.  All coordination
// between concurrent requests happens in storage (unique keys, conditional
// updates, row locks); a Booking holds no mutable state of its own.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/metrics"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/repository"
)

var tracer = otel.Tracer("github.com/iliyamo/court-reservation/internal/service")

// DefaultPricePerSlot is what a non-member owes for one slot.
const DefaultPricePerSlot uint32 = 500

// Store is the storage the booking core needs.  repository.Store is the
// MySQL implementation.
type Store interface {
	FindConflicts(ctx context.Context, date string, refs []model.SlotRef) ([]model.SlotRef, error)
	InsertReservations(ctx context.Context, rs []model.Reservation) ([]model.Reservation, error)
	ActiveSlots(ctx context.Context, date string) ([]model.SlotRef, error)
	LegacySlots(ctx context.Context, date string) ([]model.SlotRef, error)
	ListReservations(ctx context.Context, f repository.ListFilter) ([]model.Reservation, error)
	ListCancellations(ctx context.Context, f repository.ListFilter) ([]model.Cancellation, error)
	CancellationByReservation(ctx context.Context, reservationID uint64) (model.Cancellation, error)
	DebitCredits(ctx context.Context, memberID uint64, n uint32) (model.Member, error)
	RestoreCredits(ctx context.Context, memberID uint64, n uint32) error
	Member(ctx context.Context, id uint64) (model.Member, error)
	WithTx(ctx context.Context, fn func(repository.Tx) error) error
}

// EventPublisher receives booking events.  Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Options configures a Booking.  Zero values pick defaults.
type Options struct {
	PricePerSlot uint32
	Cache        *AvailabilityCache
	Events       EventPublisher
	Metrics      *metrics.Booking
	Logger       *zap.Logger
	Now          func() time.Time
}

// Booking is the booking service.
type Booking struct {
	store   Store
	cache   *AvailabilityCache
	events  EventPublisher
	metrics *metrics.Booking
	log     *zap.Logger
	price   uint32
	now     func() time.Time
}

// NewBooking returns a Booking over store.
func NewBooking(store Store, opts Options) *Booking {
	b := &Booking{
		store:   store,
		cache:   opts.Cache,
		events:  opts.Events,
		metrics: opts.Metrics,
		log:     opts.Logger,
		price:   opts.PricePerSlot,
		now:     opts.Now,
	}
	if b.price == 0 {
		b.price = DefaultPricePerSlot
	}
	if b.metrics == nil {
		b.metrics = metrics.Default()
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	return b
}

func (b *Booking) publish(ctx context.Context, ev queue.BookingEvent) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(ctx, ev); err != nil {
		b.log.Warn("publish booking event failed", zap.String("type", ev.Type), zap.String("event_id", ev.EventID), zap.Error(err))
	}
}

func (b *Booking) invalidate(ctx context.Context, date string) {
	if b.cache != nil {
		b.cache.Invalidate(ctx, date)
	}
}

func balanceOf(m *model.Member) *model.MemberBalance {
	if m == nil {
		return nil
	}
	bal := m.Balance()
	return &bal
}
