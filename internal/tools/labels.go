package tools

import (
	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
)

func slotLabels(slots []availability.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Label())
	}
	return out
}

func rangeLabels(a *scheduling.Availability) []string {
	ranges := a.Slots.Ranges()
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, r.Label())
	}
	return out
}
