// Package taskerr defines the error taxonomy of the task compiler.
//
// Every failure raised by the pipeline is an *Error carrying a Kind, the
// pipeline stage that detected it and the offending subject (a symbol, type,
// object or rule). Callers match kinds with errors.Is against the sentinel
// values below:
//
//	if errors.Is(err, taskerr.ErrUnreachableGoal) { ... }
//
// None of these errors are recoverable inside the compiler.
package taskerr

import (
	"errors"
	"fmt"
)

// Kind classifies a compilation failure.
type Kind string

const (
	KindParseStructure           Kind = "ParseStructureError"
	KindUndeclaredSymbol         Kind = "UndeclaredSymbolError"
	KindType                     Kind = "TypeError"
	KindExternalSymbolConstraint Kind = "ExternalSymbolConstraintError"
	KindGroundingInfrastructure  Kind = "GroundingInfrastructureError"
	KindUnreachableGoal          Kind = "UnreachableGoalError"
	KindUnsupportedFeature       Kind = "UnsupportedFeatureError"
	KindInternal                 Kind = "InternalError"
)

// Pipeline stages, used in messages.
const (
	StageDecode      = "decode"
	StageTypes       = "types"
	StageIndex       = "index"
	StageVariables   = "variables"
	StageLowering    = "lowering"
	StageSchema      = "schema"
	StageGrounding   = "grounding"
	StageSerializing = "serializing"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrParseStructure           = &Error{Kind: KindParseStructure}
	ErrUndeclaredSymbol         = &Error{Kind: KindUndeclaredSymbol}
	ErrType                     = &Error{Kind: KindType}
	ErrExternalSymbolConstraint = &Error{Kind: KindExternalSymbolConstraint}
	ErrGroundingInfrastructure  = &Error{Kind: KindGroundingInfrastructure}
	ErrUnreachableGoal          = &Error{Kind: KindUnreachableGoal}
	ErrUnsupportedFeature       = &Error{Kind: KindUnsupportedFeature}
	ErrInternal                 = &Error{Kind: KindInternal}
)

// Error is a structured compilation failure.
type Error struct {
	Kind    Kind
	Stage   string
	Subject string
	Message string
	Err     error
}

// New creates an error of the given kind.
func New(kind Kind, stage, subject, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Stage != "" {
		msg += " [" + e.Stage + "]"
	}
	if e.Subject != "" {
		msg += fmt.Sprintf(" %q", e.Subject)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// Convenience constructors, one per kind.

func ParseStructure(stage, subject, format string, args ...interface{}) *Error {
	return New(KindParseStructure, stage, subject, format, args...)
}

func UndeclaredSymbol(stage, subject, format string, args ...interface{}) *Error {
	return New(KindUndeclaredSymbol, stage, subject, format, args...)
}

func Type(stage, subject, format string, args ...interface{}) *Error {
	return New(KindType, stage, subject, format, args...)
}

func ExternalSymbolConstraint(stage, subject, format string, args ...interface{}) *Error {
	return New(KindExternalSymbolConstraint, stage, subject, format, args...)
}

func GroundingInfrastructure(stage, subject, format string, args ...interface{}) *Error {
	return New(KindGroundingInfrastructure, stage, subject, format, args...)
}

func UnreachableGoal(stage, subject, format string, args ...interface{}) *Error {
	return New(KindUnreachableGoal, stage, subject, format, args...)
}

func UnsupportedFeature(stage, subject, format string, args ...interface{}) *Error {
	return New(KindUnsupportedFeature, stage, subject, format, args...)
}

func Internal(stage, subject, format string, args ...interface{}) *Error {
	return New(KindInternal, stage, subject, format, args...)
}
