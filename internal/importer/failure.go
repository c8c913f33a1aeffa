package importer

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a row could not be imported.
type FailureKind int

const (
	FailureStructural     FailureKind = iota // row shape rejected before classification
	FailureClassification                    // no transaction kind matches
	FailureLookup                            // referenced account or transfer missing
	FailureValidation                        // business rule rejected by the store
	FailurePersistence                       // writing to the store failed
)

func (k FailureKind) String() string {
	switch k {
	case FailureStructural:
		return "structural"
	case FailureClassification:
		return "classification"
	case FailureLookup:
		return "lookup"
	case FailureValidation:
		return "validation"
	case FailurePersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Failure is a row-level import failure.
type Failure struct {
	Kind FailureKind
	Msg  string
	Err  error
}

func (f *Failure) Error() string {
	if f.Msg != "" {
		return f.Msg
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Kind.String() + " failure"
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether another attempt could succeed.
func (f *Failure) Retryable() bool {
	return f.Kind == FailurePersistence
}

func failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func persistenceFailure(err error) *Failure {
	return &Failure{Kind: FailurePersistence, Err: err}
}

// KindOf returns the failure kind of err. Errors that are not a *Failure
// count as persistence failures.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailurePersistence
}

// isRetryable reports whether err is worth another attempt. Errors that are
// not a *Failure are unexpected and retried.
func isRetryable(err error) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Retryable()
	}
	return true
}
