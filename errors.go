package tap

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the install sequence.
// Every kind is terminal; nothing is retried.
type ErrorKind string

const (
	KindUnsupportedPlatform ErrorKind = "unsupported_platform"
	KindFetch               ErrorKind = "fetch"
	KindIntegrity           ErrorKind = "integrity"
	KindFilesystem          ErrorKind = "filesystem"
	KindSmokeTest           ErrorKind = "smoke_test"
	KindInvalidFormula      ErrorKind = "invalid_formula"
)

// Error wraps an underlying error with the operation that failed and its kind.
type Error struct {
	Op   string
	Kind ErrorKind
	Path string // optional, file or url involved
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Fail builds an [Error]; a nil err yields nil so it can wrap call results directly.
func Fail(op string, kind ErrorKind, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Path: path, Err: err}
}

// IsKind reports whether any [Error] in the chain has the given kind,
// including errors nested inside the cause of an outer one.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var te *Error
		if !errors.As(err, &te) {
			return false
		}
		if te.Kind == kind {
			return true
		}
		err = te.Err
	}
	return false
}

// KindOf returns the kind of the outermost [Error] in the chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
