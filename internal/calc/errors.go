package calc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures.
type ErrorKind int

const (
	KindSyntax ErrorKind = iota
	KindArity
	KindReference
	KindCircular
	KindConversion
	KindConvergence
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindArity:
		return "arity error"
	case KindReference:
		return "reference error"
	case KindCircular:
		return "circular reference"
	case KindConversion:
		return "conversion error"
	case KindConvergence:
		return "convergence error"
	}
	return "error"
}

// Error is the single error type produced by the parser and evaluator.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func syntaxErr(format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Msg: fmt.Sprintf(format, args...)}
}

func arityErr(format string, args ...any) *Error {
	return &Error{Kind: KindArity, Msg: fmt.Sprintf(format, args...)}
}

func refErr(format string, args ...any) *Error {
	return &Error{Kind: KindReference, Msg: fmt.Sprintf(format, args...)}
}

func convErr(format string, args ...any) *Error {
	return &Error{Kind: KindConversion, Msg: fmt.Sprintf(format, args...)}
}

func circularErr(format string, args ...any) *Error {
	return &Error{Kind: KindCircular, Msg: fmt.Sprintf(format, args...)}
}

func convergenceErr(format string, args ...any) *Error {
	return &Error{Kind: KindConvergence, Msg: fmt.Sprintf(format, args...)}
}
