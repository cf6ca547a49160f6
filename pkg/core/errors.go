package core

import "fmt"

// ConfigError reports a missing or malformed required config field. It is
// raised before any network call is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid source configuration: %s %s", e.Field, e.Reason)
}

// InvalidIdentifierError reports an identifier that failed the allow-list
// check. It is always fatal to the call that raised it; identifiers are
// never sanitized-and-retried.
type InvalidIdentifierError struct {
	Field string
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier for %s: %q", e.Field, e.Value)
}

// ConnectionError reports a failed handshake or initial fetch.
type ConnectionError struct {
	Source string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Source, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotConnectedError reports an operation invoked before a successful
// Connect.
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s called before connect", e.Op)
}

// QueryError reports a backend that rejected the translated query or
// returned a non-2xx response.
type QueryError struct {
	Source  string
	Status  int
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("query against %s failed (status %d): %s", e.Source, e.Status, msg)
	}
	return fmt.Sprintf("query against %s failed: %s", e.Source, msg)
}

func (e *QueryError) Unwrap() error { return e.Err }

// UnsupportedOperationError reports a request the adapter layer refuses to
// perform, such as a caller-supplied raw query that is not read-only or a
// filter operator no engine understands.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s: %s", e.Operation, e.Reason)
}

// UnknownSourceError is returned when a config declares a source type no
// factory is registered for.
type UnknownSourceError struct {
	Type      SourceType
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q (available: %v)", e.Type, e.Available)
}
