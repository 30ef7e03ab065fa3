package dispatch

import "fmt"

// RegistrationError reports a method name with no registered
// implementation, detected at dispatch time.
type RegistrationError struct {
	Method string
}

// Error implements the error interface for RegistrationError.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("no implementation registered for method '%s'", e.Method)
}

// ConfigurationError reports an invalid dispatch configuration, detected
// before any work is dispatched.
type ConfigurationError struct {
	Msg string
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	return "dispatch configuration: " + e.Msg
}

// ExecutionError reports a failed method invocation for one group. It
// aborts the node's remaining groups and the whole traversal.
type ExecutionError struct {
	Node  string
	Group string
	Err   error
}

// Error implements the error interface for ExecutionError.
func (e *ExecutionError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("executing node %s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("executing node %s, group %s: %v", e.Node, e.Group, e.Err)
}

// Unwrap exposes the underlying method failure.
func (e *ExecutionError) Unwrap() error { return e.Err }
