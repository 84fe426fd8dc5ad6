// Package email holds the immutable input of the assistant: an incoming
// email and the three-way triage classification derived from it.
package email
