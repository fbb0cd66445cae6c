package model

import "time"

// Membership plans offered to members.
const (
	Plan1M = "1M"
	Plan3M = "3M"
	Plan6M = "6M"
)

// Plans lists every membership plan.
var Plans = []string{Plan1M, Plan3M, Plan6M}

// Member is a prepaid customer.  Credits is the number of slots the member
// can still book; one credit pays for exactly one slot.  The balance is only
// changed through conditional increments/decrements in the repository and
// never goes below zero.
type Member struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Membership string    `json:"membership"`
	Credits    uint32    `json:"credits"`
	AmountDue  uint32    `json:"amountDue"`
	Paid       bool      `json:"paid"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MemberBalance is the slice of a member returned alongside booking
// operations so callers can refresh their view without another fetch.
type MemberBalance struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Credits uint32 `json:"credits"`
}

// Balance returns the MemberBalance view of m.
func (m Member) Balance() MemberBalance {
	return MemberBalance{ID: m.ID, Name: m.Name, Email: m.Email, Credits: m.Credits}
}
