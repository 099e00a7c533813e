package calendar

import (
	"fmt"
	"strings"
)

// Slot is one business hour, bounded by zero-padded 24h clock strings.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s Slot) String() string {
	return s.Start + "-" + s.End
}

// BusinessHours are the only bookable slots, 08:00 through 16:00.
var BusinessHours = []Slot{
	{"0800", "0900"},
	{"0900", "1000"},
	{"1000", "1100"},
	{"1100", "1200"},
	{"1200", "1300"},
	{"1300", "1400"},
	{"1400", "1500"},
	{"1500", "1600"},
}

// SlotsPerDay is the number of business-hour slots in a day.
var SlotsPerDay = len(BusinessHours)

// LookupSlot returns the business-hour slot with the given bounds.
func LookupSlot(start, end string) (Slot, error) {
	for _, s := range BusinessHours {
		if s.Start == start && s.End == end {
			return s, nil
		}
	}
	return Slot{}, fmt.Errorf("%s-%s is not a business-hour slot", start, end)
}

// ParseSlot accepts the "0800-0900" form.
func ParseSlot(v string) (Slot, error) {
	start, end, ok := strings.Cut(v, "-")
	if !ok {
		return Slot{}, fmt.Errorf("malformed slot %q", v)
	}
	return LookupSlot(strings.TrimSpace(start), strings.TrimSpace(end))
}

// IsSlotTime reports whether v is the start or end of some business-hour slot.
func IsSlotTime(v string) bool {
	for _, s := range BusinessHours {
		if s.Start == v || s.End == v {
			return true
		}
	}
	return false
}

// Descriptions offered when booking.
var Descriptions = []string{
	"Cleaning and Checkup",
	"X-Ray and Cavity-filling",
	"Tooth Extraction",
	"Root Canal I",
	"Root Canal II",
}
