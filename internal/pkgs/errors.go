package pkgs

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an operation against an external package
// manager failed. Failures are always local to one package or one
// source; none of them is fatal to the process.
type FailureKind int

const (
	// FailUnavailable: the manager binary or service is absent on this
	// host. The source degrades to empty; this is not a scan error.
	FailUnavailable FailureKind = iota
	// FailParse: one malformed record in a listing. The record is
	// skipped; enumeration of the remaining records continues.
	FailParse
	// FailPermission: the mutation needs elevated rights.
	FailPermission
	// FailProcess: the external command exited non-zero.
	FailProcess
	// FailTimeout: the external command exceeded its deadline. Treated
	// like FailProcess for package-state purposes.
	FailTimeout
	// FailUnsupported: the manager has no such operation (AppImage
	// update). Reported distinctly and never retried.
	FailUnsupported
)

func (k FailureKind) String() string {
	switch k {
	case FailUnavailable:
		return "manager unavailable"
	case FailParse:
		return "parse error"
	case FailPermission:
		return "permission denied"
	case FailProcess:
		return "command failed"
	case FailTimeout:
		return "command timed out"
	case FailUnsupported:
		return "operation unsupported"
	}
	return "unknown failure"
}

// Error is the typed outcome every adapter operation reports on failure.
type Error struct {
	Kind   FailureKind
	Source Source
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a failure kind for one source/operation pair.
func NewError(kind FailureKind, src Source, op string, err error) *Error {
	return &Error{Kind: kind, Source: src, Op: op, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to FailProcess
// for untyped errors.
func KindOf(err error) FailureKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailProcess
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind FailureKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
