package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	busy     []TimeRange
	meetings []Meeting
}

// NewMemoryStore creates a store with the given pre-existing busy ranges.
func NewMemoryStore(busy ...TimeRange) *MemoryStore {
	return &MemoryStore{busy: append([]TimeRange(nil), busy...)}
}

// Busy implements Store.
func (s *MemoryStore) Busy(ctx context.Context, start, end time.Time) ([]TimeRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	window := TimeRange{Start: start, End: end}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TimeRange
	for _, r := range s.busy {
		if r.Overlaps(window) {
			out = append(out, r)
		}
	}
	for _, m := range s.meetings {
		if m.Range().Overlaps(window) {
			out = append(out, m.Range())
		}
	}
	return out, nil
}

// Book implements Store.
func (s *MemoryStore) Book(ctx context.Context, m Meeting) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Attendees = append([]string(nil), m.Attendees...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings = append(s.meetings, m)
	return m, nil
}

// Meetings returns all booked meetings in booking order.
func (s *MemoryStore) Meetings() []Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Meeting(nil), s.meetings...)
}
