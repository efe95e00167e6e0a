// Package async turns callback-style remote calls into blocking results.
//
// Await bridges a single Call, Join runs two calls side by side and folds
// them into one value. Neither returns a Go error or lets a panic escape:
// every failure is carried inside an Outcome.
package async

import (
	"errors"
	"fmt"
)

// Kind categorizes a failed outcome.
type Kind int

const (
	// KindUnknown is the zero value and never produced by this package.
	KindUnknown Kind = iota
	// KindTransport means no response could be obtained (network, IO, decoding, cancellation).
	KindTransport
	// KindEmptyBody means a response arrived without a payload.
	KindEmptyBody
	// KindSemanticStatus means a payload arrived but its status was not "ok".
	KindSemanticStatus
	// KindUnexpected means a panic was recovered while producing the outcome.
	KindUnexpected
	// KindNotFound means the selection store has nothing saved.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport error"
	case KindEmptyBody:
		return "empty body"
	case KindSemanticStatus:
		return "status error"
	case KindUnexpected:
		return "unexpected"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Failure is the error half of an Outcome.
type Failure struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, optional
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure creates a Failure without an underlying cause.
func NewFailure(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// WrapFailure creates a Failure that wraps err.
func WrapFailure(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// KindOf reports the Kind of the first Failure in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// Outcome is the tagged result of one fetch attempt: a value or a Failure, never both.
type Outcome[T any] struct {
	value   T
	failure *Failure
}

// Success wraps a value.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Fail builds a failed outcome.
func Fail[T any](kind Kind, message string) Outcome[T] {
	return Outcome[T]{failure: NewFailure(kind, message)}
}

// Failed builds a failed outcome from an existing Failure. A nil f is treated as KindUnknown.
func Failed[T any](f *Failure) Outcome[T] {
	if f == nil {
		f = NewFailure(KindUnknown, "unknown failure")
	}
	return Outcome[T]{failure: f}
}

// OK reports whether the outcome carries a value.
func (o Outcome[T]) OK() bool {
	return o.failure == nil
}

// Value returns the carried value, or the zero value on failure.
func (o Outcome[T]) Value() T {
	return o.value
}

// Failure returns the failure, or nil on success.
func (o Outcome[T]) Failure() *Failure {
	return o.failure
}

// Get unpacks the outcome into Go's value/error convention.
func (o Outcome[T]) Get() (T, error) {
	if o.failure != nil {
		var zero T
		return zero, o.failure
	}
	return o.value, nil
}

// Recovered converts a value returned by recover() into an Unexpected failure.
func Recovered(r any) *Failure {
	if err, ok := r.(error); ok {
		return WrapFailure(KindUnexpected, err.Error(), err)
	}
	return NewFailure(KindUnexpected, fmt.Sprint(r))
}
