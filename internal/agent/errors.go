package agent

import "errors"

var (
	// ErrMaxIterationsExceeded is returned when a session hits the iteration
	// cap before the terminal tool has run.
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")

	// ErrNotPaused is returned by Resume for sessions without a pending review.
	ErrNotPaused = errors.New("session is not waiting for a review decision")

	// ErrSessionClosed is returned when acting on a session that has ended.
	ErrSessionClosed = errors.New("session is closed")

	// ErrInvalidDecision is returned for malformed decisions or decisions that
	// do not apply to the pending review.
	ErrInvalidDecision = errors.New("invalid review decision")
)
