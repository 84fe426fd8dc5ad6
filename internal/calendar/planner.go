package calendar

import (
	"context"
	"fmt"
	"time"
)

// Planner computes availability and books meetings on top of a Store.
type Planner struct {
	store Store
	hours WorkingHours
	slot  time.Duration
	loc   *time.Location
}

// NewPlanner creates a planner. A zero slot length defaults to 30 minutes and
// a nil location to UTC.
func NewPlanner(store Store, hours WorkingHours, slot time.Duration, loc *time.Location) *Planner {
	if slot <= 0 {
		slot = 30 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Planner{store: store, hours: hours, slot: slot, loc: loc}
}

// Location returns the planner's time zone.
func (p *Planner) Location() *time.Location {
	return p.loc
}

// FreeSlots returns the slot-sized free ranges within working hours on day.
// Slots are aligned to the start of working hours.
func (p *Planner) FreeSlots(ctx context.Context, day time.Time) ([]TimeRange, error) {
	window := p.hours.On(day.In(p.loc))
	busy, err := p.store.Busy(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query busy times: %w", err)
	}
	return findFreeSlots(mergeRanges(busy), window, p.slot), nil
}

// Schedule books a meeting starting at start for duration. Meetings must fit
// in working hours and must not overlap busy time.
func (p *Planner) Schedule(ctx context.Context, title string, attendees []string, start time.Time, duration time.Duration) (Meeting, error) {
	if duration <= 0 {
		return Meeting{}, fmt.Errorf("duration must be positive")
	}
	if len(attendees) == 0 {
		return Meeting{}, fmt.Errorf("at least one attendee is required")
	}
	start = start.In(p.loc)
	want := TimeRange{Start: start, End: start.Add(duration)}

	window := p.hours.On(start)
	if want.Start.Before(window.Start) || want.End.After(window.End) {
		return Meeting{}, fmt.Errorf("meeting %s is outside working hours %s", want, p.hours)
	}

	busy, err := p.store.Busy(ctx, want.Start, want.End)
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to query busy times: %w", err)
	}
	for _, b := range busy {
		if b.Overlaps(want) {
			return Meeting{}, fmt.Errorf("%w: %s on %s conflicts with %s", ErrSlotUnavailable, want, start.Format(DateLayout), b)
		}
	}

	m, err := p.store.Book(ctx, Meeting{
		Title:     title,
		Attendees: attendees,
		Start:     want.Start,
		End:       want.End,
	})
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to book meeting: %w", err)
	}
	return m, nil
}

// findFreeSlots walks window in slot steps and keeps every step that does
// not overlap merged busy time.
func findFreeSlots(busy []TimeRange, window TimeRange, slot time.Duration) []TimeRange {
	var free []TimeRange
	for cur := window.Start; !cur.Add(slot).After(window.End); cur = cur.Add(slot) {
		candidate := TimeRange{Start: cur, End: cur.Add(slot)}
		isFree := true
		for _, b := range busy {
			if b.Overlaps(candidate) {
				isFree = false
				break
			}
		}
		if isFree {
			free = append(free, candidate)
		}
	}
	return free
}
