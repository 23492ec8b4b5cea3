package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoValues   = errors.New("no values")
	ErrNoMatch    = errors.New("no match")
	ErrUnknown    = errors.New("unknown")
	ErrStored     = errors.New("stored failure")
)

// Client-facing messages. Causes never reach the response body.
const (
	msgBadRequest = "Bad Request"
	msgNoValues   = "No values for selected OS"
	msgNoMatch    = "Could not find a matching entry"
	msgUnknown    = "An unknown error occurred"
)

// Error tags a failure with the handler operation that produced it and the
// kind it was classified as.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind classifies err as kind and tags it with op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
