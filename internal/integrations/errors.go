package integrations

import (
	"errors"
	"fmt"
)

// ErrorKind classifies integration failures.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport" // network error, timeout, open circuit
	KindStatus    ErrorKind = "status"    // non-2xx response
	KindDecode    ErrorKind = "decode"    // unreadable response body
	KindConfig    ErrorKind = "config"    // request could not be built
)

// Error is returned by every live integration call.
type Error struct {
	Kind    ErrorKind
	Service string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("%s error: %d - %s", e.Service, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s error: %v", e.Service, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s error: %s", e.Service, e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of an integration error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
