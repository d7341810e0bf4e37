package engine

import "fmt"

// Kind tags a terminal failure with its error class.
type Kind string

const (
	// KindMalformedSource reports a fragment the parser rejected.
	KindMalformedSource Kind = "malformed_source"
	// KindMissingResult reports a fragment whose top-level statements can
	// never produce a result.
	KindMissingResult Kind = "missing_result"
	// KindLowering reports a fragment that parsed but failed to compile.
	KindLowering Kind = "lowering"
	// KindPrecondition reports a missing project before compilation begins.
	KindPrecondition Kind = "precondition"
	// KindNotFound reports a capability name the registry does not expose.
	KindNotFound Kind = "capability_not_found"
	// KindNonSerializableResult reports a produced value that is not
	// representable as JSON.
	KindNonSerializableResult Kind = "non_serializable_result"
	// KindTimeout reports a fragment torn down at its deadline.
	KindTimeout Kind = "execution_timeout"
	// KindFaulted reports any unhandled error raised while running.
	KindFaulted Kind = "faulted_execution"
)

// Error is the typed failure carried by an Outcome.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether re-running the identical fragment could
// plausibly succeed. Only timeouts qualify unconditionally; a faulted
// execution is retryable only if the caller classifies the inner error as
// transient, and every validation-stage failure is permanent because the
// fragment itself is defective.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Outcome is the tagged result of one invocation: a JSON-compatible value on
// success, a typed Error otherwise, plus any console output the fragment
// produced before terminating.
type Outcome struct {
	Value any
	Logs  []string
	Err   *Error
}

// OK reports whether the invocation completed successfully.
func (o Outcome) OK() bool {
	return o.Err == nil
}
