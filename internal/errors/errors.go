package errors

import (
	"errors"
	"fmt"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// appError implements the Error interface
type appError struct {
	code    ErrorCode
	message string
	err     error
	data    any
}

func (e *appError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}

	if e.data != nil {
		return fmt.Sprintf("%s: %v", msg, e.data)
	}

	if e.err != nil {
		return fmt.Sprintf("%s: %v", msg, e.err)
	}

	return msg
}

func (e *appError) Code() ErrorCode {
	return e.code
}

func (e *appError) Kind() ErrorCode {
	if kind, ok := kinds[e.code]; ok {
		return kind
	}
	return Kind(e.err)
}

func (e *appError) WithMessage(msg string) Error {
	return &appError{
		code:    e.code,
		message: msg,
		err:     e.err,
		data:    e.data,
	}
}

func (e *appError) WithData(data any) Error {
	return &appError{
		code:    e.code,
		message: e.message,
		err:     e.err,
		data:    data,
	}
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

type defaultFactory struct{}

func (*defaultFactory) New(code ErrorCode) Error {
	return &appError{
		code: code,
	}
}

func (*defaultFactory) Wrap(code ErrorCode, err error) Error {
	return &appError{
		code: code,
		err:  err,
	}
}

func (*defaultFactory) WithMessage(code ErrorCode, msg string) Error {
	return &appError{
		code:    code,
		message: msg,
	}
}

func (*defaultFactory) WithData(code ErrorCode, data any) Error {
	return &appError{
		code: code,
		data: data,
	}
}

// New creates a Factory instance for error creation
func New() Factory {
	return &defaultFactory{}
}

// CodeOf returns the code of the outermost coded error in the chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return ""
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(Error); ok && e.Code() == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Kind classifies err into ErrConnection, ErrProtocol, ErrValidation or ErrResource.
// The first code in the chain with a registered class wins; anything else is ErrInternal.
func Kind(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(Error); ok {
			if kind, found := kinds[e.Code()]; found {
				return kind
			}
		}
		err = errors.Unwrap(err)
	}
	return ErrInternal
}
