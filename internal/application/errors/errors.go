// Package errors defines the closed error taxonomy every subsystem
// reports through, so callers can branch on a machine-readable Kind
// regardless of which component raised the failure.
package errors

import "fmt"

// Kind is a closed enum of the error taxonomy. New values are never
// added silently; spec changes add to this list explicitly.
type Kind string

const (
	// Input errors.
	KindUnsupportedURI    Kind = "unsupported_uri"
	KindUnknownField      Kind = "unknown_field"
	KindMissingField      Kind = "missing_field"
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfRange        Kind = "out_of_range"
	KindInvalidToolName   Kind = "invalid_tool_name"
	KindToolNotFound      Kind = "tool_not_found"
	KindToolNameCollision Kind = "tool_name_collision"
	KindComponentNotFound Kind = "component_not_found"

	// Environment errors.
	KindFetchFailed         Kind = "fetch_failed"
	KindCacheIOFailed       Kind = "cache_io_failed"
	KindPolicyParseFailed   Kind = "policy_parse_failed"
	KindPolicyPersistFailed Kind = "policy_persist_failed"

	// Component errors.
	KindInvalidComponent   Kind = "invalid_component"
	KindIntrospectionFail  Kind = "introspection_failed"
	KindUnsupportedType    Kind = "unsupported_type"
	KindExecutionTrapped   Kind = "execution_trapped"
	KindCapabilityDenied   Kind = "capability_denied"
	KindDecodingFailed     Kind = "decoding_failed"
	KindEncodingFailed     Kind = "encoding_failed"

	// Lifecycle errors.
	KindCancelled Kind = "cancelled"
)

// Error carries a closed Kind, a human message, and an optional
// wrapped cause so callers can both branch on Kind and unwrap to the
// underlying failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err carries the given Kind, looking through any
// wrap chain.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
