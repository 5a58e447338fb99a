// Package availability computes the free appointment grid for one calendar
// day: 30-minute slots between 09:00 and 17:00, Monday to Friday.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	OpeningHour = 9
	ClosingHour = 17
	SlotMinutes = 30
	// SlotsPerDay is the size of the grid on a business day.
	SlotsPerDay = (ClosingHour - OpeningHour) * 60 / SlotMinutes
	// AppointmentDuration is fixed to one slot.
	AppointmentDuration = SlotMinutes * time.Minute
)

var (
	// ErrOutsideHours rejects starts before 09:00 or after 16:30.
	ErrOutsideHours = errors.New("availability: outside business hours")
	// ErrMisaligned rejects starts that are not on the half-hour grid.
	ErrMisaligned = errors.New("availability: start not aligned to slot grid")
)

// Slot is a grid position expressed as a local wall-clock time.
type Slot struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (s Slot) minutes() int {
	return s.Hour*60 + s.Minute
}

func slotFromMinutes(total int) Slot {
	return Slot{Hour: total / 60, Minute: total % 60}
}

// Add returns the slot d later on the same day.
func (s Slot) Add(d time.Duration) Slot {
	return slotFromMinutes(s.minutes() + int(d/time.Minute))
}

// On anchors the slot on date's calendar day in loc.
func (s Slot) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, s.Hour, s.Minute, 0, 0, loc)
}

// String renders "09:00".
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Label renders the spoken form used by the assistant: "09h" or "09h30".
func (s Slot) Label() string {
	if s.Minute > 0 {
		return fmt.Sprintf("%02dh%02d", s.Hour, s.Minute)
	}
	return fmt.Sprintf("%02dh", s.Hour)
}

// SlotRange is a maximal run of contiguous free slots. End is exclusive:
// a range holding only 09:30 is 09:30–10:00.
type SlotRange struct {
	Start Slot `json:"start"`
	End   Slot `json:"end"`
}

func (r SlotRange) String() string {
	return r.Start.String() + "–" + r.End.String()
}

// Label renders the spoken form, e.g. "09h à 10h30".
func (r SlotRange) Label() string {
	return r.Start.Label() + " à " + r.End.Label()
}

// Slots expands the range back into its grid slots.
func (r SlotRange) Slots() []Slot {
	var out []Slot
	for m := r.Start.minutes(); m < r.End.minutes(); m += SlotMinutes {
		out = append(out, slotFromMinutes(m))
	}
	return out
}

// BusinessSlots lists every slot start of a business day in order.
func BusinessSlots() []Slot {
	out := make([]Slot, 0, SlotsPerDay)
	for m := OpeningHour * 60; m < ClosingHour*60; m += SlotMinutes {
		out = append(out, slotFromMinutes(m))
	}
	return out
}

// CheckBookable validates an appointment start against business hours and
// the slot grid. Hours are checked before alignment.
func CheckBookable(hour, minute int) error {
	start := hour*60 + minute
	if hour < OpeningHour || start+SlotMinutes > ClosingHour*60 || minute < 0 || minute >= 60 {
		return ErrOutsideHours
	}
	if minute%SlotMinutes != 0 {
		return ErrMisaligned
	}
	return nil
}

// MergeIntoRanges folds free slots into chronological, non-touching ranges.
func MergeIntoRanges(free []Slot) []SlotRange {
	if len(free) == 0 {
		return nil
	}
	sorted := make([]Slot, len(free))
	copy(sorted, free)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].minutes() < sorted[j].minutes() })

	var ranges []SlotRange
	current := SlotRange{Start: sorted[0], End: sorted[0].Add(AppointmentDuration)}
	for _, s := range sorted[1:] {
		switch {
		case s.minutes() < current.End.minutes():
			// duplicate of a slot already covered
		case s.minutes() == current.End.minutes():
			current.End = s.Add(AppointmentDuration)
		default:
			ranges = append(ranges, current)
			current = SlotRange{Start: s, End: s.Add(AppointmentDuration)}
		}
	}
	return append(ranges, current)
}

// FormatRanges joins range labels for speech: "09h à 10h, 11h à 17h".
func FormatRanges(ranges []SlotRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.Label()
	}
	return strings.Join(parts, ", ")
}
