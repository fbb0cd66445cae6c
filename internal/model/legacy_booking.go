package model

// LegacyBooking is a row of the pre-migration `legacy_bookings` table, where
// a single document held the occupied slots of each court as arrays.
type LegacyBooking struct {
	ID     uint64
	Date   string
	Court1 []string
	Court2 []string
	Court3 []string
}

// Refs flattens the per-court arrays into slot references.
func (l LegacyBooking) Refs() []SlotRef {
	out := make([]SlotRef, 0, len(l.Court1)+len(l.Court2)+len(l.Court3))
	for _, s := range l.Court1 {
		out = append(out, SlotRef{Court: Court1, Slot: s})
	}
	for _, s := range l.Court2 {
		out = append(out, SlotRef{Court: Court2, Slot: s})
	}
	for _, s := range l.Court3 {
		out = append(out, SlotRef{Court: Court3, Slot: s})
	}
	return out
}
