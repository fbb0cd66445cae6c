package service

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/court-reservation/internal/model"
)

// Availability maps every court to its occupied slot labels in ascending
// order.  Free courts map to an empty list, never to a missing key.
type Availability map[model.Court][]string

// QueryAvailability returns the occupied slots of date, merging active
// reservations with rows from the legacy per-court-array table.
func (b *Booking) QueryAvailability(ctx context.Context, date string) (Availability, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, invalid("date", "%v", err)
	}
	ctx, span := tracer.Start(ctx, "booking.availability", trace.WithAttributes(attribute.String("date", date)))
	defer span.End()

	if b.cache != nil {
		if av, ok := b.cache.Get(ctx, date); ok {
			return av, nil
		}
	}

	active, err := b.store.ActiveSlots(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, infra("load active slots", err)
	}
	legacy, err := b.store.LegacySlots(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, infra("load legacy slots", err)
	}
	av := mergeOccupied(active, legacy)

	if b.cache != nil {
		b.cache.Set(ctx, date, av)
	}
	return av, nil
}

// mergeOccupied folds slot sets into one de-duplicated, sorted list per
// court.  References to courts outside the fixed set are ignored.
func mergeOccupied(sets ...[]model.SlotRef) Availability {
	seen := make(map[model.SlotRef]struct{})
	av := make(Availability, len(model.Courts))
	for _, c := range model.Courts {
		av[c] = []string{}
	}
	for _, set := range sets {
		for _, ref := range set {
			if !ref.Court.Valid() {
				continue
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			av[ref.Court] = append(av[ref.Court], ref.Slot)
		}
	}
	for _, slots := range av {
		// "HH:00" labels sort lexically in time order
		sort.Strings(slots)
	}
	return av
}
