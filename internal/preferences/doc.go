// Package preferences keeps what reviewers teach the assistant.
//
// Edits and feedback given on a paused tool call, and the answer given to a
// notification, are stored as short notes grouped by namespace. The response
// loop and the triage classifier add the notes of their namespaces to the
// instructions of later requests, so a correction made once carries over to
// the next email.
package preferences
