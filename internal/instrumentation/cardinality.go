package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording metrics with sender addresses.

// ExtractSenderDomain extracts the lower-cased domain part from an email
// address, accepting the "Name <addr>" form.
//
// Example:
//
//	ExtractSenderDomain("jane@example.com")          // "example.com"
//	ExtractSenderDomain("Jane <jane@Example.com>")   // "example.com"
//	ExtractSenderDomain("invalid")                   // "unknown"
//	ExtractSenderDomain("")                          // "unknown"
func ExtractSenderDomain(email string) string {
	if i := strings.LastIndex(email, "<"); i >= 0 {
		email = strings.TrimSuffix(email[i+1:], ">")
	}

	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// ToolLabel bounds the tool label to registered tool names. Names proposed
// by the reasoner that are not registered are reported as "unknown".
func ToolLabel(name string, registered bool) string {
	if !registered || name == "" {
		return "unknown"
	}
	return name
}

// Operation types for Google API metrics.
const (
	OperationFreeBusy = "freebusy"
	OperationInsert   = "insert"
)
