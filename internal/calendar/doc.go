// Package calendar provides the calendar backend used by the assistant's
// scheduling tools.
//
// A Store reports busy time ranges and books meetings. Two stores are
// available: MemoryStore, which keeps everything in process, and
// GoogleStore, which talks to the Google Calendar API (free/busy queries and
// event inserts). Planner sits on top of a Store and computes free slots
// within working hours and schedules meetings without double booking.
//
// Example usage:
//
//	store := calendar.NewMemoryStore()
//	planner := calendar.NewPlanner(store, calendar.DefaultWorkingHours(), 30*time.Minute, time.UTC)
//
//	day, _ := calendar.ParseDate("2024-06-01", time.UTC)
//	slots, err := planner.FreeSlots(ctx, day)
//	if err != nil {
//	    log.Fatal(err)
//	}
package calendar
