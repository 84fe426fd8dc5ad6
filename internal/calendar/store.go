package calendar

import (
	"context"
	"time"
)

// Store is a calendar backend.
type Store interface {
	// Busy returns the busy ranges that intersect [start, end).
	Busy(ctx context.Context, start, end time.Time) ([]TimeRange, error)
	// Book creates a meeting and returns it with its assigned ID.
	Book(ctx context.Context, m Meeting) (Meeting, error)
}
