package service

import (
	"errors"
)

// Sentinel kinds returned by the catalog reader. Handlers map each kind to
// its fixed client message; wrapped causes are only logged.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoValues   = errors.New("no values for selected os")
	ErrNoMatch    = errors.New("could not find a matching entry")
	ErrUnknown    = errors.New("an unknown error occurred")
)

// StoredFailure is returned when the catalog records an error for an entry.
// Its message is shown to clients verbatim.
type StoredFailure struct {
	Message string
}

func (e *StoredFailure) Error() string {
	return e.Message
}
