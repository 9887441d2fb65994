package jtag

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure the way adapter SDKs report them, so callers
// can branch on the kind of failure without matching error strings.
type ErrorCode int

const (
	CodeNone ErrorCode = iota
	CodeTransport
	CodeUSB
	CodeProtocol
	CodeTimeout
	CodeBadParameter
	CodeNotConnected
	CodeUnsupported
)

var codeInfo = map[ErrorCode]struct{ name, desc string }{
	CodeNone:         {"ercNoError", "no error"},
	CodeTransport:    {"ercTransport", "the adapter transport reported a failure"},
	CodeUSB:          {"ercUSB", "USB transfer or device access failed"},
	CodeProtocol:     {"ercProtocol", "the probe rejected or garbled a command"},
	CodeTimeout:      {"ercTimeout", "the probe did not answer in time"},
	CodeBadParameter: {"ercBadParameter", "invalid argument, buffer size or bit count"},
	CodeNotConnected: {"ercNotConnected", "no session is connected"},
	CodeUnsupported:  {"ercUnsupported", "operation not supported by this adapter or device"},
}

// Name returns the symbolic name of the code.
func (c ErrorCode) Name() string {
	if info, ok := codeInfo[c]; ok {
		return info.name
	}
	return fmt.Sprintf("erc%d", int(c))
}

// Description returns a one-line explanation of the code.
func (c ErrorCode) Description() string {
	if info, ok := codeInfo[c]; ok {
		return info.desc
	}
	return "unknown error code"
}

func (c ErrorCode) String() string {
	return c.Name()
}

var (
	// ErrBadParameter marks caller misuse detected before anything is clocked.
	ErrBadParameter = errors.New("jtag: bad parameter")
	// ErrNotConnected is returned by session operations before Connect.
	ErrNotConnected = errors.New("jtag: not connected")
	// ErrNotImplemented lets backends signal that a requested capability is not yet
	// available without relying on fmt.Errorf each time.
	ErrNotImplemented = errors.New("jtag: not implemented")
)

// Error carries the failing operation and its code alongside the cause.
type Error struct {
	Op   string
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code.Description())
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error. A nil cause yields nil.
func NewError(op string, code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Err: err}
}

// Wrap tags err with op, keeping the code of an inner *Error when there is
// one and falling back to code otherwise.
func Wrap(op string, code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	var inner *Error
	if errors.As(err, &inner) {
		code = inner.Code
	}
	return &Error{Op: op, Code: code, Err: err}
}

// BadParameter formats a misuse error that matches ErrBadParameter.
func BadParameter(op, format string, args ...any) error {
	return &Error{
		Op:   op,
		Code: CodeBadParameter,
		Err:  fmt.Errorf("%w: %s", ErrBadParameter, fmt.Sprintf(format, args...)),
	}
}

// CodeOf extracts the code carried by err. Sentinels map to their codes and
// any other non-nil error is reported as CodeTransport.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrBadParameter):
		return CodeBadParameter
	case errors.Is(err, ErrNotConnected):
		return CodeNotConnected
	case errors.Is(err, ErrNotImplemented):
		return CodeUnsupported
	}
	return CodeTransport
}
