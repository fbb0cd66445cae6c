package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/court-reservation/internal/metrics"
	"github.com/iliyamo/court-reservation/internal/model"
)

const day = "2025-01-10"

var fixedNow = time.Date(2025, 1, 9, 15, 0, 0, 0, time.UTC)

type harness struct {
	svc     *Booking
	store   *fakeStore
	events  *recordingPublisher
	metrics *metrics.Booking
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newFakeStore()
	events := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewBooking(store, Options{
		Events:  events,
		Metrics: m,
		Now:     func() time.Time { return fixedNow },
	})
	return &harness{svc: svc, store: store, events: events, metrics: m}
}

func ref(court model.Court, slot string) model.SlotRef {
	return model.SlotRef{Court: court, Slot: slot}
}

func u64(v uint64) *uint64 { return &v }
