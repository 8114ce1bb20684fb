/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package exceptions builds the stack-carrying errors the verifier,
// classloader, and interpreter return for the kinds enumerated in
// excNames. It generalizes jacobin's cfe() helper (classloader.go),
// which hand-rolled a runtime.Caller lookup to report where a class
// format error was detected; here github.com/pkg/errors.WithStack
// captures the same information uniformly for every error kind.
package exceptions

import (
	"fmt"

	"github.com/pkg/errors"

	"jacobin/excNames"
)

// JVMError is a verify-time or class-format-time error: a kind plus a
// human-readable reason, with a captured stack for diagnostics.
type JVMError struct {
	Kind    excNames.ExceptionType
	Message string
	cause   error
}

func (e *JVMError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

func (e *JVMError) Unwrap() error { return e.cause }

// New constructs a JVMError of the given kind, capturing the current
// call stack the way jacobin's cfe() captured runtime.Caller(1).
func New(kind excNames.ExceptionType, msg string) error {
	return &JVMError{Kind: kind, Message: msg, cause: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind excNames.ExceptionType, format string, args ...interface{}) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// VerifyError builds the error the verifier returns for a type-safety
// violation (§7), naming the offending instruction and the reason.
func VerifyError(instructionPC int, reason string) error {
	return Newf(excNames.VerifyError, "at pc=%d: %s", instructionPC, reason)
}

// ClassFormatError builds the error the constant-pool resolver and
// format checker return for malformed constant-pool or attribute data.
func ClassFormatError(reason string) error {
	return New(excNames.ClassFormatError, reason)
}

// Is reports whether err is a JVMError of the given kind.
func Is(err error, kind excNames.ExceptionType) bool {
	var je *JVMError
	if errors.As(err, &je) {
		return je.Kind == kind
	}
	return false
}
