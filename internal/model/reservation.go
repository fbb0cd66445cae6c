package model

import "time"

// Reservation is an active booking of one slot on one court for one day.
// Rows live in the `reservations` table, whose unique key on
// (res_date, court, slot) is what prevents double booking.  A reservation is
// never flagged as cancelled in place: cancelling moves it into a
// Cancellation and deletes the row.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – requester name (the member's canonical name for members).
//  IsMember       – whether the booking was paid with member credits.
//  MemberID       – member whose credits were debited (nil for non-members).
//  Date           – calendar day, YYYY-MM-DD.
//  Court, Slot    – the occupied pair.
//  AmountDue      – outstanding amount; always zero for members.
//  Paid, Refunded – payment ledger flags.
//  CreditsCharged – credits debited for this row, restored on cancellation.
type Reservation struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	IsMember       bool      `json:"isMember"`
	MemberID       *uint64   `json:"memberId,omitempty"`
	Date           string    `json:"date"`
	Court          Court     `json:"court"`
	Slot           string    `json:"slot"`
	AmountDue      uint32    `json:"amountDue"`
	Paid           bool      `json:"paid"`
	Refunded       bool      `json:"refunded"`
	CreditsCharged uint32    `json:"creditsCharged"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Ref returns the (court, slot) pair the reservation occupies.
func (r Reservation) Ref() SlotRef { return SlotRef{Court: r.Court, Slot: r.Slot} }
