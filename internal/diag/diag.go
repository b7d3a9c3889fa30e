// Package diag defines the structured diagnostics raised by the checker,
// the engine and the compiler.
//
// Every user-attributable failure is a *Diagnostic carrying a stable error
// code, the name of the offending construct and a rendered message. Tooling
// matches on codes; messages are for humans. Invariant violations inside
// the compiler itself are a separate type, *InternalError, so callers can
// tell a broken program from a broken compiler.
package diag

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable identifier for a diagnostic class.
type ErrorCode string

// Definition shape errors (raised while parsing class-like bodies).
const (
	ErrD001 ErrorCode = "D001" // duplicate field
	ErrD002 ErrorCode = "D002" // duplicate enum variant
	ErrD003 ErrorCode = "D003" // unexpected statement in body
	ErrD004 ErrorCode = "D004" // method not built through the definition API
	ErrD005 ErrorCode = "D005" // base clause not supported
	ErrD006 ErrorCode = "D006" // duplicate parameter or input name
	ErrD007 ErrorCode = "D007" // field default values not supported
	ErrD008 ErrorCode = "D008" // recursive type definition
	ErrD009 ErrorCode = "D009" // field and method share a name
	ErrD010 ErrorCode = "D010" // duplicate instance function
	ErrD011 ErrorCode = "D011" // duplicate top-level definition
)

// Type checking errors.
const (
	ErrT001 ErrorCode = "T001" // unknown name
	ErrT002 ErrorCode = "T002" // type mismatch
	ErrT003 ErrorCode = "T003" // wrong number of arguments
	ErrT004 ErrorCode = "T004" // cannot infer generic arguments
	ErrT005 ErrorCode = "T005" // value is not callable
	ErrT006 ErrorCode = "T006" // no such field
	ErrT007 ErrorCode = "T007" // no such method
	ErrT008 ErrorCode = "T008" // wrong generic argument kind
	ErrT009 ErrorCode = "T009" // name does not denote a type
	ErrT010 ErrorCode = "T010" // missing type annotation
	ErrT011 ErrorCode = "T011" // constant parameter not usable as a value
	ErrT012 ErrorCode = "T012" // borrowed argument must be an assignable place
	ErrT013 ErrorCode = "T013" // name does not denote a value
	ErrT014 ErrorCode = "T014" // statements after return
)

// Protocol satisfaction errors.
const (
	ErrP001 ErrorCode = "P001" // protocol member missing
	ErrP002 ErrorCode = "P002" // member signature mismatch
	ErrP003 ErrorCode = "P003" // unresolved variables in implementation
	ErrP004 ErrorCode = "P004" // couldn't infer protocol parameter
	ErrP005 ErrorCode = "P005" // no assumption satisfies protocol
	ErrP006 ErrorCode = "P006" // ambiguous protocol assumption
)

// Engine and entry-point errors.
const (
	ErrE001 ErrorCode = "E001" // invalid entry point
	ErrE002 ErrorCode = "E002" // experimental feature disabled
)

// Diagnostic is a user-facing compilation error.
type Diagnostic struct {
	Code    ErrorCode
	Subject string // name of the offending construct, may be empty
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Subject == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Subject, d.Message)
}

// Newf builds a diagnostic for the given code and subject.
func Newf(code ErrorCode, subject string, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// InternalError reports a broken compiler invariant. It is never the
// program's fault and should be reported as a bug.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Message
}

// Internalf builds an InternalError.
func Internalf(format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the diagnostic code from err, or "" when err is not a
// Diagnostic.
func CodeOf(err error) ErrorCode {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Code
	}
	return ""
}

// IsInternal reports whether err is an internal compiler error.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
