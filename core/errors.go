package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies agent failures. Boundaries match on the kind rather
// than on concrete error types, so wrapping with fmt.Errorf("%w") is safe
// anywhere in between.
type ErrorKind int

const (
	// KindOther is an unclassified failure, surfaced to callers only in redacted form.
	KindOther ErrorKind = iota
	// KindConfiguration means missing or invalid local setup. Fatal at startup.
	KindConfiguration
	// KindAgent means session or engine construction/readiness problems.
	KindAgent
	// KindTool means tool-catalog or handshake problems. Fatal at startup.
	KindTool
	// KindTimeout is a request-scoped timeout, never fatal to the lifecycle.
	KindTimeout
)

// String returns the kind name used in logs and error payloads.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAgent:
		return "agent"
	case KindTool:
		return "tool"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// Error is the tagged error variant carried across component boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewConfigurationError tags a missing/invalid local setup failure.
func NewConfigurationError(message string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Cause: cause}
}

// NewAgentError tags a session/engine construction or readiness failure.
func NewAgentError(message string, cause error) *Error {
	return &Error{Kind: KindAgent, Message: message, Cause: cause}
}

// NewToolError tags a tool-catalog or handshake failure.
func NewToolError(message string, cause error) *Error {
	return &Error{Kind: KindTool, Message: message, Cause: cause}
}

// NewTimeoutError tags a request-scoped timeout.
func NewTimeoutError(message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Cause: cause}
}

// KindOf extracts the classification of err, or KindOther when err carries no tag.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsTimeout reports whether err is a request-scoped timeout.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }
