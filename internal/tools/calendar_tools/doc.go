// Package calendar_tools provides the scheduling tools the assistant can call
// while responding to an email.
//
// check_calendar_availability lists free slots on a given date and runs
// without review. schedule_meeting books a meeting and requires human review
// by default. Both tools are backed by a calendar.Planner, so they work the
// same way against the in-memory store and Google Calendar.
package calendar_tools
