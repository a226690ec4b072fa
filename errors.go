package agentkit

import "fmt"

// ConfigurationError reports invalid configuration or template input,
// detected synchronously before any I/O.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ToolExecutionError reports a tool that raised, timed out, or whose
// remote call failed. It is terminal to the current turn.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// StructuredOutputError reports final output text that failed schema
// validation. It is terminal to the current turn; no retry is attempted.
type StructuredOutputError struct {
	Reason string
	Err    error
}

func (e *StructuredOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structured output validation failed: %s: %v", e.Reason, e.Err)
	}
	return "structured output validation failed: " + e.Reason
}

func (e *StructuredOutputError) Unwrap() error {
	return e.Err
}
