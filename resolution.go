package variants

import (
	"errors"
	"fmt"
)

// Reason explains how a resolution produced its value.
type Reason string

const (
	// ReasonAssigned means the source held a value readable as the requested type.
	ReasonAssigned Reason = "assigned"
	// ReasonMissing means the source had no assignment for the key.
	ReasonMissing Reason = "missing"
	// ReasonTypeMismatch means the stored value could not be read as the
	// requested type.
	ReasonTypeMismatch Reason = "type_mismatch"
	// ReasonInvalid means the value converted but failed its Validate method.
	ReasonInvalid Reason = "invalid"
	// ReasonInvalidKey means the key itself was blank.
	ReasonInvalidKey Reason = "invalid_key"
	// ReasonNoSource means no resolver or source was configured.
	ReasonNoSource Reason = "no_source"
)

// Fallback reports whether the reason resolved to the caller's default.
func (r Reason) Fallback() bool {
	return r != ReasonAssigned
}

// String implements fmt.Stringer.
func (r Reason) String() string {
	return string(r)
}

// Resolution is the detailed outcome of one typed lookup. Err is set for
// fallbacks caused by bad data, never for plain missing assignments.
type Resolution[T any] struct {
	Key      Key
	Value    T
	Reason   Reason
	Revision uint64
	Err      error
}

// ResolutionError describes why a lookup degraded to its default. It is
// reported through Resolution.Err, loggers and activity hooks; it is never
// returned from typed accessors.
type ResolutionError struct {
	Key      Key
	Reason   Reason
	Expected string
	Actual   string
	Err      error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("variants: key %q fell back to default (%s)", e.Key, e.Reason)
	if e.Expected != "" || e.Actual != "" {
		msg = fmt.Sprintf("%s: expected %s, got %s", msg, e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

var (
	// ErrTypeMismatch is wrapped by ResolutionError for unconvertible values.
	ErrTypeMismatch = errors.New("variants: stored value has a different type")
	// ErrNoSource is reported when resolving without a configured source.
	ErrNoSource = errors.New("variants: no source configured")
)
