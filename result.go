package twi

import (
	"errors"
	"fmt"
)

// Result is the outcome of a master transaction.
type Result byte

const (
	OK Result = iota
	NotFound
	Rejected
	Aborted
	Busy
	BadParameter
	Unknown
)

var (
	// ErrNotFound means the slave did not acknowledge its address within the retry budget.
	ErrNotFound = errors.New("slave address not found")
	// ErrRejected means the slave refused the first data byte.
	ErrRejected = errors.New("slave rejected the transfer")
	// ErrAborted means the slave stopped acknowledging after accepting some bytes.
	ErrAborted = errors.New("slave aborted the transfer")
	// ErrBusy means another transaction is in flight.
	ErrBusy = errors.New("bus controller is busy")
	// ErrBadParameter means the request was refused before touching the bus.
	ErrBadParameter = errors.New("bad parameter")
	// ErrUnknown covers bus errors and unexpected peripheral states.
	ErrUnknown = errors.New("unknown bus error")
)

var resultErrors = [...]error{
	OK:           nil,
	NotFound:     ErrNotFound,
	Rejected:     ErrRejected,
	Aborted:      ErrAborted,
	Busy:         ErrBusy,
	BadParameter: ErrBadParameter,
	Unknown:      ErrUnknown,
}

var resultNames = [...]string{
	OK:           "OK",
	NotFound:     "NOT_FOUND",
	Rejected:     "REJECTED",
	Aborted:      "ABORTED",
	Busy:         "BUSY",
	BadParameter: "BAD_PARAMETER",
	Unknown:      "UNKNOWN",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("RESULT(%d)", byte(r))
}

// Err returns the sentinel error for the result, nil for OK.
func (r Result) Err() error {
	if int(r) < len(resultErrors) {
		return resultErrors[r]
	}
	return ErrUnknown
}

// ResultOf maps an error returned by a Transactor back to a result code.
// Errors that are not one of the sentinels (context expiry included) are Unknown.
func ResultOf(err error) Result {
	if err == nil {
		return OK
	}
	for r, sentinel := range resultErrors {
		if sentinel != nil && errors.Is(err, sentinel) {
			return Result(r)
		}
	}
	return Unknown
}
