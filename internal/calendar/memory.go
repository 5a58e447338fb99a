package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend is an in-process calendar store used for local development
// (CALENDAR_BACKEND=memory) and tests.
type MemoryBackend struct {
	mu        sync.RWMutex
	calendars []Resource
	events    map[string][]Event
}

// NewMemoryBackend seeds the store with the given calendars. When none are
// given a single primary calendar is created.
func NewMemoryBackend(calendars ...Resource) *MemoryBackend {
	if len(calendars) == 0 {
		calendars = []Resource{{
			ID:         "primary",
			Name:       "Cabinet médical",
			AccessRole: "owner",
			TimeZone:   "Europe/Paris",
			Primary:    true,
		}}
	}
	b := &MemoryBackend{events: make(map[string][]Event)}
	b.calendars = append(b.calendars, calendars...)
	return b
}

func (b *MemoryBackend) ListCalendars(ctx context.Context) ([]Resource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Resource, len(b.calendars))
	copy(out, b.calendars)
	return out, nil
}

func (b *MemoryBackend) GetCalendar(ctx context.Context, calendarID string) (*Resource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r, ok := b.lookup(calendarID); ok {
		return &r, nil
	}
	return nil, ErrCalendarNotFound
}

func (b *MemoryBackend) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.lookup(calendarID); !ok {
		return nil, ErrCalendarNotFound
	}
	var out []Event
	for _, ev := range b.events[b.resolveID(calendarID)] {
		if ev.Start.Before(timeMax) && ev.End.After(timeMin) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (b *MemoryBackend) InsertEvent(ctx context.Context, calendarID string, ev NewEvent) (*Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.lookup(calendarID); !ok {
		return nil, ErrCalendarNotFound
	}
	created := Event{
		ID:          uuid.New().String(),
		Title:       ev.Title,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
	}
	id := b.resolveID(calendarID)
	b.events[id] = append(b.events[id], created)
	return &created, nil
}

func (b *MemoryBackend) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.lookup(calendarID); !ok {
		return ErrCalendarNotFound
	}
	id := b.resolveID(calendarID)
	events := b.events[id]
	for i, ev := range events {
		if ev.ID == eventID {
			b.events[id] = append(events[:i:i], events[i+1:]...)
			return nil
		}
	}
	return ErrEventNotFound
}

// Seed adds an existing event, e.g. a busy slot in a test fixture.
func (b *MemoryBackend) Seed(calendarID string, ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	id := b.resolveID(calendarID)
	b.events[id] = append(b.events[id], ev)
	return ev
}

// "primary" is an alias for whichever calendar is flagged Primary.
func (b *MemoryBackend) lookup(calendarID string) (Resource, bool) {
	for _, r := range b.calendars {
		if r.ID == calendarID || (calendarID == "primary" && r.Primary) {
			return r, true
		}
	}
	return Resource{}, false
}

func (b *MemoryBackend) resolveID(calendarID string) string {
	if r, ok := b.lookup(calendarID); ok {
		return r.ID
	}
	return calendarID
}
