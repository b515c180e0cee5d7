package service

import (
	"fmt"
	"net/http"
)

// Kind classifies a failure the user can be told about.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindConflict
	KindNotFound
	KindInsufficientFunds
	KindInsufficientShares
	KindTransport
)

// Error is a handled failure carrying the message shown to the user.
// Anything that is not an *Error is an unexpected fault.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrAuth               = &Error{Kind: KindAuth}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientShares = &Error{Kind: KindInsufficientShares}
	ErrTransport          = &Error{Kind: KindTransport}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Status is the HTTP status the failure is rendered with.
func (e *Error) Status() int {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case KindAuth, KindConflict:
		return http.StatusForbidden
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func newError(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}
