package model

import "time"

// Cancellation is the archival snapshot of a reservation taken at the moment
// it was cancelled.  OriginalReservationID is unique in the `cancellations`
// table, so at most one snapshot exists per reservation; that uniqueness is
// what makes cancelling idempotent.
type Cancellation struct {
	ID                    uint64    `json:"cancellationId"`
	OriginalReservationID uint64    `json:"id"`
	Name                  string    `json:"name"`
	IsMember              bool      `json:"isMember"`
	MemberID              *uint64   `json:"memberId,omitempty"`
	Date                  string    `json:"date"`
	Court                 Court     `json:"court"`
	Slot                  string    `json:"slot"`
	AmountDue             uint32    `json:"amountDue"`
	Paid                  bool      `json:"paid"`
	Refunded              bool      `json:"refunded"`
	CreditsCharged        uint32    `json:"creditsCharged"`
	BookedAt              time.Time `json:"createdAt"`
	CancelledAt           time.Time `json:"cancelledAt"`
}

// SnapshotOf copies every field of r into a new Cancellation stamped with at.
func SnapshotOf(r Reservation, at time.Time) Cancellation {
	var member *uint64
	if r.MemberID != nil {
		id := *r.MemberID
		member = &id
	}
	return Cancellation{
		OriginalReservationID: r.ID,
		Name:                  r.Name,
		IsMember:              r.IsMember,
		MemberID:              member,
		Date:                  r.Date,
		Court:                 r.Court,
		Slot:                  r.Slot,
		AmountDue:             r.AmountDue,
		Paid:                  r.Paid,
		Refunded:              r.Refunded,
		CreditsCharged:        r.CreditsCharged,
		BookedAt:              r.CreatedAt,
		CancelledAt:           at.UTC(),
	}
}
