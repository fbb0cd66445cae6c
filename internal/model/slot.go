package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for reservation dates both on
// the wire and in the reservations.res_date column.
const DateLayout = "2006-01-02"

// First and last bookable hour of a day.  Slots are hour aligned and the
// range is inclusive, so a day has SlotEndHour-SlotStartHour+1 slots.
const (
	SlotStartHour = 6
	SlotEndHour   = 23
)

// Court identifies one of the physically bookable courts.
type Court string

const (
	Court1 Court = "court1"
	Court2 Court = "court2"
	Court3 Court = "court3"
)

// Courts lists every bookable court in display order.
var Courts = []Court{Court1, Court2, Court3}

// Valid reports whether c is one of the fixed courts.
func (c Court) Valid() bool {
	for _, k := range Courts {
		if k == c {
			return true
		}
	}
	return false
}

// SlotRef names a single (court, slot) pair on an implied date.
type SlotRef struct {
	Court Court  `json:"court"`
	Slot  string `json:"slot"`
}

func (s SlotRef) String() string { return fmt.Sprintf("%s@%s", s.Court, s.Slot) }

// SlotLabels returns every slot label of a day ("06:00" ... "23:00").
func SlotLabels() []string {
	out := make([]string, 0, SlotEndHour-SlotStartHour+1)
	for h := SlotStartHour; h <= SlotEndHour; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}

// ValidSlot reports whether label is an hour-aligned slot inside the daily
// range.
func ValidSlot(label string) bool {
	if len(label) != 5 {
		return false
	}
	t, err := time.Parse("15:04", label)
	if err != nil || t.Minute() != 0 {
		return false
	}
	return t.Hour() >= SlotStartHour && t.Hour() <= SlotEndHour
}

// ParseDate parses a YYYY-MM-DD calendar day.  Values such as 2025-02-30 are
// rejected because time.Parse validates the day of month.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}
