// Package clanerr classifies errors into the four kinds the hook protocol
// distinguishes: transient, validation, policy, and fatal internal defects.
// Every kind maps to a specific hook response shape, so classification
// happens once, at the boundary, using the Kind carried by *Error (see As
// and KindOf, built on errors.As) rather than ad-hoc string matching.
package clanerr

import (
	"errors"
	"fmt"
)

// Kind is one of the four error kinds from the error handling design.
type Kind int

const (
	// KindTransient covers Store unavailability, pub/sub timeouts, and
	// subprocess read timeouts. Never blocks the host.
	KindTransient Kind = iota
	// KindValidation covers bad ids, oversized state, and malformed JSON.
	KindValidation
	// KindPolicy covers invalid compositions, missing mandatory pipeline
	// artifacts, and incomplete swarms at Stop.
	KindPolicy
	// KindFatal covers invariant violations — unreachable state
	// transitions and similar internal defects.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and, for KindPolicy, the
// user-visible message the hook response should carry.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// maxMessageBytes is the 2 KiB cap on a user-visible message, applied by
// Policy; the hook dispatcher applies the same cap to every decision
// message it writes.
const maxMessageBytes = 2048

// Transient wraps cause as a transient error.
func Transient(cause error) error {
	return &Error{Kind: KindTransient, Cause: cause}
}

// Validation wraps cause as a validation error.
func Validation(cause error) error {
	return &Error{Kind: KindValidation, Cause: cause}
}

// Policy constructs a policy error carrying a user-visible message,
// truncated to the 2 KiB limit.
func Policy(message string) error {
	return &Error{Kind: KindPolicy, Message: truncate(message, maxMessageBytes)}
}

// Fatal wraps cause (typically describing a violated invariant by name) as
// a fatal internal defect.
func Fatal(invariant string, cause error) error {
	return &Error{Kind: KindFatal, Message: invariant, Cause: cause}
}

// As extracts the *Error and its Kind from err, if err is (or wraps) one.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is a classified *Error, and
// KindFatal (the safest default: log and never leak side effects)
// otherwise.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}
	return KindFatal
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
