package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/court-reservation/internal/model"
)

// LegacyBookingRepo reads the pre-migration legacy_bookings table, where one
// row held JSON arrays of occupied slots per court.  It is a read adapter:
// rows are normalised into SlotRefs here so nothing above the repository
// layer knows the old shape exists.  The table is never written.
type LegacyBookingRepo struct {
	db dbtx
}

func NewLegacyBookingRepo(db dbtx) *LegacyBookingRepo { return &LegacyBookingRepo{db: db} }

// SlotsByDate returns the slots occupied by legacy rows on date.
func (r *LegacyBookingRepo) SlotsByDate(ctx context.Context, date string) ([]model.SlotRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, court1, court2, court3 FROM legacy_bookings WHERE res_date = ?`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SlotRef
	for rows.Next() {
		var (
			lb         = model.LegacyBooking{Date: date}
			c1, c2, c3 []byte
		)
		if err := rows.Scan(&lb.ID, &c1, &c2, &c3); err != nil {
			return nil, err
		}
		if lb.Court1, err = decodeSlotArray(c1); err != nil {
			return nil, fmt.Errorf("legacy booking %d court1: %w", lb.ID, err)
		}
		if lb.Court2, err = decodeSlotArray(c2); err != nil {
			return nil, fmt.Errorf("legacy booking %d court2: %w", lb.ID, err)
		}
		if lb.Court3, err = decodeSlotArray(c3); err != nil {
			return nil, fmt.Errorf("legacy booking %d court3: %w", lb.ID, err)
		}
		out = append(out, lb.Refs()...)
	}
	return out, rows.Err()
}

// decodeSlotArray parses a JSON array of slot labels.  NULL columns decode
// to an empty list.
func decodeSlotArray(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}
