// Package errx defines the coded errors the simulation surfaces to its
// decision and reporting layers.
package errx

import (
	"fmt"
	"maps"
)

// Code is the stable identifier of an error kind.
type Code string

const (
	// CodeInvalidTransaction marks a land deal outside the city-state's bounds.
	CodeInvalidTransaction Code = "INVALID_TRANSACTION"
	// CodeUnregisteredParty marks an attack or offer naming an unknown city-state.
	CodeUnregisteredParty Code = "UNREGISTERED_PARTY"
	// CodeInvalidDecision marks a negative planting or recruitment amount.
	CodeInvalidDecision Code = "INVALID_DECISION"
	// CodeRejectedOffer marks an offer dropped at settlement. It is reported
	// as a notice, never returned from an operation.
	CodeRejectedOffer Code = "REJECTED_OFFER"
)

var (
	ErrInvalidTransaction = New(CodeInvalidTransaction, "invalid land transaction")
	ErrUnregisteredParty  = New(CodeUnregisteredParty, "party not registered")
	ErrInvalidDecision    = New(CodeInvalidDecision, "invalid decision")
	ErrRejectedOffer      = New(CodeRejectedOffer, "offer rejected")
)

// Error carries a code, a message, optional context data and a cause.
type Error struct {
	code  Code
	msg   string
	data  map[string]any
	cause error
}

func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.code)
	if e.msg != "" {
		s += ": " + e.msg
	}
	if len(e.data) > 0 {
		s += fmt.Sprintf(" %v", e.data)
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Unwrap exposes the cause chain to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is compares by code only, so errors.Is(err, ErrInvalidTransaction) holds
// for every derived error regardless of its data.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code
}

func (e *Error) Code() Code {
	if e == nil {
		return ""
	}
	return e.code
}

func (e *Error) Msg() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Data returns a copy of the context data.
func (e *Error) Data() map[string]any {
	if e == nil || e.data == nil {
		return nil
	}
	return maps.Clone(e.data)
}

// WithData returns a copy of e with key set in its context data.
func (e *Error) WithData(key string, value any) *Error {
	next := &Error{code: e.code, msg: e.msg, data: maps.Clone(e.data), cause: e.cause}
	if next.data == nil {
		next.data = make(map[string]any, 1)
	}
	next.data[key] = value
	return next
}

// WithMsg returns a copy of e with a more specific message.
func (e *Error) WithMsg(format string, args ...any) *Error {
	return &Error{code: e.code, msg: fmt.Sprintf(format, args...), data: maps.Clone(e.data), cause: e.cause}
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{code: e.code, msg: e.msg, data: maps.Clone(e.data), cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
