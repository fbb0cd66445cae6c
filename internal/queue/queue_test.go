package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/model"
)

var at = time.Date(2025, 1, 9, 8, 30, 0, 0, time.UTC)

func TestReservationEventAggregatesRows(t *testing.T) {
	member := uint64(4)
	ev := ReservationEvent(EventBookingCreated, at,
		model.Reservation{ID: 1, Name: "Mia", IsMember: true, MemberID: &member, Date: "2025-01-10", Court: model.Court1, Slot: "18:00", CreditsCharged: 1},
		model.Reservation{ID: 2, Name: "Mia", IsMember: true, MemberID: &member, Date: "2025-01-10", Court: model.Court2, Slot: "19:00", CreditsCharged: 1},
	)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, EventBookingCreated, ev.Type)
	assert.Equal(t, []uint64{1, 2}, ev.ReservationIDs)
	assert.Equal(t, []string{"court1@18:00", "court2@19:00"}, ev.Slots)
	assert.Equal(t, uint32(2), ev.Credits)
	assert.Equal(t, "2025-01-09T08:30:00Z", ev.OccurredAt)
}

func TestLogLine(t *testing.T) {
	ev := CancellationEvent(at, model.Cancellation{
		OriginalReservationID: 7, Name: "Ana", Date: "2025-01-10", Court: model.Court3, Slot: "06:00", AmountDue: 500,
	})
	line := ev.LogLine()

	assert.True(t, strings.HasPrefix(line, "[2025-01-09T08:30:00Z] booking.cancelled | event_id="))
	assert.Contains(t, line, `reservation_ids=[7] | name="Ana" | date=2025-01-10 | slots=[court3@06:00] | amount_due=500 | credits=0`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestAuditConsumerDropsRedeliveries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "booking.log")
	c := NewAuditConsumer("", "court.events", path, zap.NewNop())

	ev := NewBookingEvent(EventBookingPaid, at)
	ev.ReservationIDs = []uint64{3}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), ev.EventID))
}

func TestAuditConsumerRejectsGarbage(t *testing.T) {
	c := NewAuditConsumer("", "court.events", filepath.Join(t.TempDir(), "b.log"), zap.NewNop())
	assert.Error(t, c.handle([]byte("not json")))
}

func TestRecentIDsEvictsOldest(t *testing.T) {
	r := newRecentIDs(2)
	assert.True(t, r.add("a"))
	assert.True(t, r.add("b"))
	assert.False(t, r.add("a"))
	assert.True(t, r.add("c"))
	assert.True(t, r.add("a"), "a was evicted when c arrived")
}
