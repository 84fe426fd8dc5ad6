package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/tool"
)

// Tool names.
const (
	CheckAvailabilityName = "check_calendar_availability"
	ScheduleMeetingName   = "schedule_meeting"
)

// MaxMeetingMinutes bounds schedule_meeting's duration to one day.
const MaxMeetingMinutes = 24 * 60

// CheckAvailabilitySpec describes check_calendar_availability(date).
func CheckAvailabilitySpec() tool.Spec {
	return tool.Spec{
		Name:        CheckAvailabilityName,
		Description: "Check calendar availability for a given day and list the free time slots.",
		Schema: tool.Schema{
			Properties: map[string]tool.Property{
				"date": {Type: tool.TypeString, Format: tool.FormatDate, Description: "Day to check (YYYY-MM-DD)"},
			},
			Required: []string{"date"},
		},
		Policy: tool.PolicyAuto,
	}
}

// ScheduleMeetingSpec describes schedule_meeting(attendees, date, time, duration, title).
func ScheduleMeetingSpec() tool.Spec {
	return tool.Spec{
		Name:        ScheduleMeetingName,
		Description: "Schedule a calendar meeting with the given attendees.",
		Schema: tool.Schema{
			Properties: map[string]tool.Property{
				"attendees": {
					Type:        tool.TypeArray,
					Items:       &tool.Property{Type: tool.TypeString, Format: tool.FormatEmail},
					Description: "Attendee email addresses",
				},
				"date":     {Type: tool.TypeString, Format: tool.FormatDate, Description: "Meeting day (YYYY-MM-DD)"},
				"time":     {Type: tool.TypeString, Format: tool.FormatTime, Description: "Start time (HH:MM)"},
				"duration": {Type: tool.TypeInteger, Minimum: tool.Min(1), Maximum: tool.Max(MaxMeetingMinutes), Description: "Duration in minutes"},
				"title":    {Type: tool.TypeString, Description: "Meeting title (default: 'Meeting')"},
			},
			Required: []string{"attendees", "date", "time", "duration"},
		},
		Policy: tool.PolicyReview,
	}
}

// CheckAvailability returns the check_calendar_availability executor.
func CheckAvailability(planner *calendar.Planner) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		date := tool.String(args, "date")
		day, err := calendar.ParseDate(date, planner.Location())
		if err != nil {
			return "", err
		}

		slots, err := planner.FreeSlots(ctx, day)
		if err != nil {
			return "", err
		}
		if len(slots) == 0 {
			return fmt.Sprintf("No free slots on %s.", date), nil
		}

		formatted := make([]string, 0, len(slots))
		for _, s := range slots {
			formatted = append(formatted, s.String())
		}
		return fmt.Sprintf("Available slots on %s: %s", date, strings.Join(formatted, ", ")), nil
	})
}

// ScheduleMeeting returns the schedule_meeting executor.
func ScheduleMeeting(planner *calendar.Planner) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		attendees := tool.Strings(args, "attendees")
		date := tool.String(args, "date")
		clock := tool.String(args, "time")

		minutes, err := tool.Int(args, "duration")
		if err != nil {
			return "", err
		}
		if minutes < 1 || minutes > MaxMeetingMinutes {
			return "", fmt.Errorf("duration must be between 1 and %d minutes", MaxMeetingMinutes)
		}

		start, err := calendar.ParseDateTime(date, clock, planner.Location())
		if err != nil {
			return "", err
		}

		title := tool.String(args, "title")
		if title == "" {
			title = "Meeting"
		}

		m, err := planner.Schedule(ctx, title, attendees, start, time.Duration(minutes)*time.Minute)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Meeting '%s' scheduled on %s at %s for %d minutes with %s (id %s)",
			m.Title, date, m.Start.Format(calendar.ClockLayout), minutes, strings.Join(m.Attendees, ", "), m.ID), nil
	})
}

// Register adds check_calendar_availability and schedule_meeting to reg.
func Register(reg *tool.Registry, planner *calendar.Planner) error {
	if planner == nil {
		return fmt.Errorf("calendar planner is required")
	}
	if err := reg.Register(CheckAvailabilitySpec(), CheckAvailability(planner)); err != nil {
		return fmt.Errorf("failed to register %s: %w", CheckAvailabilityName, err)
	}
	if err := reg.Register(ScheduleMeetingSpec(), ScheduleMeeting(planner)); err != nil {
		return fmt.Errorf("failed to register %s: %w", ScheduleMeetingName, err)
	}
	return nil
}
