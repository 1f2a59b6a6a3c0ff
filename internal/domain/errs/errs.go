// Package errs is the error taxonomy shared by every sportsmeet operation.
//
// Each failure carries one of five kinds. Adapters map kinds onto their own
// vocabulary (HTTP status codes, CLI exit codes) with KindOf.
package errs

import (
	"errors"
	"fmt"
)

// Kinds. Compare with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrStorage            = errors.New("storage error")
)

// Named reasons surfaced to callers.
const (
	ReasonEventNotFound  = "EventNotFound"
	ReasonPositionTaken  = "PositionTaken"
	ReasonRecordNotFound = "RecordNotFound"
	ReasonTooManyEntries = "too many entries"
	ReasonPartialFailure = "partial failure"
)

// Error is an operation failure of a known kind.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind whose message is the kind itself.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapKind classifies err under kind, keeping its text.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap keeps the kind of an already classified error and treats anything
// else as a storage failure. Backend text passes through unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if k := KindOf(err); k != nil {
		var e *Error
		if errors.As(err, &e) && e.Op == op {
			return err
		}
		return &Error{Op: op, Kind: k, Err: err}
	}
	return &Error{Op: op, Kind: ErrStorage, Err: err}
}

// KindOf reports the kind of err, nil when err is unclassified.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrPreconditionFailed, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsCallerError reports whether err was caused by the request rather than
// the system: validation, not found, conflict and precondition failures.
func IsCallerError(err error) bool {
	k := KindOf(err)
	return k != nil && k != ErrStorage
}

// Validation is shorthand for a validation failure with a message.
func Validation(op, format string, args ...any) error {
	return Newf(op, ErrValidation, format, args...)
}

// PartialError reports a multi-item write where only some items landed.
type PartialError struct {
	Op    string
	Saved int
	Total int
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: %d of %d items were not saved, please try again",
		ReasonPartialFailure, e.Total-e.Saved, e.Total)
}

// Is classifies partial failures as storage errors.
func (e *PartialError) Is(target error) bool { return target == ErrStorage }

// Partial returns a storage error that records how many of total items were
// saved.
func Partial(op string, saved, total int) error {
	return &PartialError{Op: op, Saved: saved, Total: total}
}
