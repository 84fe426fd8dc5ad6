// Package email_tools provides the email-side tools of the assistant:
// write_email (send a reply through an Outbox), triage_email (record the
// triage decision) and Done (signal that the email has been handled).
package email_tools
