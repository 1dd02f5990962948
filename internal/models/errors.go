package models

import "fmt"

// FailureKind classifies why an entry (or a batch) did not complete.
type FailureKind string

const (
	FailureConfiguration FailureKind = "configuration"
	FailureDirectory     FailureKind = "directory"
	FailureTransport     FailureKind = "transport"
	FailureFormat        FailureKind = "format"
	FailureMove          FailureKind = "move"
	FailureCancelled     FailureKind = "cancelled"
)

// Failure is a structured failure reason.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
	Err    error       `json:"-"`
}

// NewFailure builds a Failure with a formatted detail.
func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapFailure builds a Failure whose detail is err's message and which
// unwraps to err.
func WrapFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Detail: err.Error(), Err: err}
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Detail
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches another *Failure of the same kind, so errors.Is(err,
// &Failure{Kind: FailureFormat}) works regardless of detail.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Detail == "" || t.Detail == f.Detail)
}

// Sentinel failures for errors.Is comparisons.
var (
	ErrConfiguration = &Failure{Kind: FailureConfiguration}
	ErrDirectory     = &Failure{Kind: FailureDirectory}
	ErrTransport     = &Failure{Kind: FailureTransport}
	ErrFormat        = &Failure{Kind: FailureFormat}
	ErrMove          = &Failure{Kind: FailureMove}
	ErrCancelled     = &Failure{Kind: FailureCancelled}
)
