package gateway

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
)

// Kind classifies an execution failure.
type Kind int

const (
	UnknownError Kind = iota
	ConstraintViolation
	ConnectivityError
)

func (k Kind) String() string {
	switch k {
	case ConstraintViolation:
		return "constraint_violation"
	case ConnectivityError:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *ExecError of the same kind.
var (
	ErrConstraintViolation = errors.New("constraint violation")
	ErrConnectivity        = errors.New("database connectivity error")
	ErrUnknown             = errors.New("database error")
)

// ExecError is a classified backend failure. Its message is the backend's
// own error text, unchanged, so it can be shown to the user verbatim.
type ExecError struct {
	Kind Kind
	Err  error
}

func (e *ExecError) Error() string { return e.Err.Error() }

func (e *ExecError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConstraintViolation) and friends match.
func (e *ExecError) Is(target error) bool {
	switch target {
	case ErrConstraintViolation:
		return e.Kind == ConstraintViolation
	case ErrConnectivity:
		return e.Kind == ConnectivityError
	case ErrUnknown:
		return e.Kind == UnknownError
	}
	return false
}

// Classifier inspects a backend error and reports its Kind. ok=false means
// the classifier does not recognise the error.
type Classifier func(err error) (kind Kind, ok bool)

// Classify wraps err in an *ExecError. The backend classifier is consulted
// first; otherwise transport-level failures (driver.ErrBadConn, net errors,
// unexpected EOF) count as connectivity and everything else as unknown.
// A nil err stays nil and an existing *ExecError is returned unchanged.
func Classify(err error, backend Classifier) error {
	if err == nil {
		return nil
	}
	var ee *ExecError
	if errors.As(err, &ee) {
		return err
	}
	if backend != nil {
		if k, ok := backend(err); ok {
			return &ExecError{Kind: k, Err: err}
		}
	}
	if IsConnectivity(err) {
		return &ExecError{Kind: ConnectivityError, Err: err}
	}
	return &ExecError{Kind: UnknownError, Err: err}
}

// IsConnectivity reports transport-level failures common to all drivers.
func IsConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// KindOf returns the classification of err, UnknownError when err is not an
// *ExecError.
func KindOf(err error) Kind {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return UnknownError
}
