package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Input layouts accepted by the scheduling tools.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ErrSlotUnavailable is returned when a meeting overlaps busy time.
var ErrSlotUnavailable = errors.New("time slot is not available")

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Overlaps reports whether r and o share any instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// String formats the range as "HH:MM-HH:MM".
func (r TimeRange) String() string {
	return r.Start.Format(ClockLayout) + "-" + r.End.Format(ClockLayout)
}

// Meeting is a booked calendar entry.
type Meeting struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Attendees []string  `json:"attendees" yaml:"attendees"`
	Start     time.Time `json:"start" yaml:"start"`
	End       time.Time `json:"end" yaml:"end"`
}

// Range returns the time covered by the meeting.
func (m Meeting) Range() TimeRange {
	return TimeRange{Start: m.Start, End: m.End}
}

// WorkingHours bounds the part of a day that can be scheduled, expressed as
// offsets from midnight.
type WorkingHours struct {
	Start time.Duration
	End   time.Duration
}

// DefaultWorkingHours is 09:00-17:00.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{Start: 9 * time.Hour, End: 17 * time.Hour}
}

// ParseWorkingHours parses "HH:MM-HH:MM".
func ParseWorkingHours(s string) (WorkingHours, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return WorkingHours{}, fmt.Errorf("invalid working hours %q: expected HH:MM-HH:MM", s)
	}
	start, err := parseClock(from)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid working hours %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid working hours %q: %w", s, err)
	}
	wh := WorkingHours{Start: start, End: end}
	if err := wh.Validate(); err != nil {
		return WorkingHours{}, err
	}
	return wh, nil
}

// Validate checks that the window is non-empty and within one day.
func (w WorkingHours) Validate() error {
	if w.Start < 0 || w.End > 24*time.Hour || w.Start >= w.End {
		return fmt.Errorf("invalid working hours: start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

// On returns the working window of day.
func (w WorkingHours) On(day time.Time) TimeRange {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return TimeRange{Start: midnight.Add(w.Start), End: midnight.Add(w.End)}
}

// String formats the window as "HH:MM-HH:MM".
func (w WorkingHours) String() string {
	return formatClock(w.Start) + "-" + formatClock(w.End)
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseDateTime combines a YYYY-MM-DD date and an HH:MM time in loc.
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset), nil
}

func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// mergeRanges sorts ranges and joins overlapping or adjacent ones.
func mergeRanges(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]TimeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
