package availability

import (
	"strings"
	"time"
)

// BusyInterval is an existing event on a calendar, as returned by the backend.
type BusyInterval struct {
	ResourceID string
	Start      time.Time
	End        time.Time
}

// MatchMode selects how busy intervals mark slots as booked.
type MatchMode int

const (
	// MatchStart books a slot only when an event starts exactly on it.
	// Events off the half-hour grid, or longer than one slot, do not block
	// the slots they overlap.
	MatchStart MatchMode = iota
	// MatchOverlap books every slot that intersects an event.
	MatchOverlap
)

// ParseMatchMode reads SLOT_MATCH_MODE; anything but "overlap" is MatchStart.
func ParseMatchMode(value string) MatchMode {
	if strings.EqualFold(strings.TrimSpace(value), "overlap") {
		return MatchOverlap
	}
	return MatchStart
}

func (m MatchMode) String() string {
	if m == MatchOverlap {
		return "overlap"
	}
	return "start"
}

// DaySlots is the availability picture for one resource and date.
type DaySlots struct {
	Date   time.Time
	Closed bool
	All    []Slot
	Booked []Slot
	Free   []Slot
}

// Ranges merges the free slots.
func (d DaySlots) Ranges() []SlotRange {
	return MergeIntoRanges(d.Free)
}

// ComputeFreeSlots projects busy intervals into loc and splits the business
// grid of date into booked and free slots. Weekends come back Closed with
// empty sets.
func ComputeFreeSlots(date time.Time, busy []BusyInterval, loc *time.Location, mode MatchMode) DaySlots {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if IsClosed(day) {
		return DaySlots{Date: day, Closed: true}
	}

	result := DaySlots{Date: day, All: BusinessSlots()}
	for _, slot := range result.All {
		if isBooked(slot, day, busy, loc, mode) {
			result.Booked = append(result.Booked, slot)
		} else {
			result.Free = append(result.Free, slot)
		}
	}
	return result
}

func isBooked(slot Slot, day time.Time, busy []BusyInterval, loc *time.Location, mode MatchMode) bool {
	slotStart := slot.On(day, loc)
	slotEnd := slotStart.Add(AppointmentDuration)
	for _, b := range busy {
		if mode == MatchOverlap {
			if b.Start.Before(slotEnd) && b.End.After(slotStart) {
				return true
			}
			continue
		}
		local := b.Start.In(loc)
		if sameDay(local, day) && local.Hour() == slot.Hour && local.Minute() == slot.Minute {
			return true
		}
	}
	return false
}

// IsClosed reports whether the clinic is shut on date's weekday.
func IsClosed(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay returns date itself when open, otherwise the following Monday.
func NextBusinessDay(date time.Time) time.Time {
	for IsClosed(date) {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
