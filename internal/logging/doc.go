// Package logging provides structured logging utilities for the inboxagent application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (sender address hashing)
//   - Consistent attribute naming for sessions, tool calls and review decisions
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithSession(slog.Default(), session.ID)
//	logger.Info("tool executed",
//	    logging.Tool("write_email"),
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("email received",
//	    logging.SenderHash(e.From))
//
// # Security Considerations
//
//   - Sender addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
