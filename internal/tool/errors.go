package tool

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrSchemaViolation  = errors.New("schema violation")
	ErrDuplicateTool    = errors.New("tool already registered")
	ErrExecutionFailure = errors.New("tool execution failed")
)

// UnknownToolError is returned when a tool name cannot be resolved.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Is makes errors.Is(err, ErrUnknownTool) match.
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// SchemaViolationError describes the first argument that failed validation.
type SchemaViolationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Field, e.Tool, e.Reason)
}

// Is makes errors.Is(err, ErrSchemaViolation) match.
func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// ExecutionError wraps a failure raised by an executor.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExecutionFailure) match.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailure
}
