/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jvm is the interpreter: per-thread frame execution, method
// invocation (Java and intrinsic), exception-table walking, and the
// diagnostics printed when a frame stack unwinds with no handler.
// Grounded on jacobin's jvm package (run.go/errors.go/initializerBlock.go);
// rewritten against this module's frames/thread/classloader/object
// types, which diverge from the retrieved fragments' mid-refactor
// shapes (see DESIGN.md).
package jvm

import (
	"fmt"
	"os"
	"runtime/debug"

	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/globals"
	"jacobin/modules"
	"jacobin/thread"
	"jacobin/trace"
)

// MainThread is the thread that runs the application's main() method.
var MainThread *thread.JavaThread

// Init wires the interpreter into the rest of the VM: it gives
// globals.FuncThrowException a real implementation (so classloader and
// gfunction can raise Java exceptions without importing this package)
// and points classloader's intrinsic lookup at the gfunction registry
// via the hook the caller supplies.
func Init(intrinsicLookup func(fqn string, majorVersion int) (interface{}, bool)) {
	g := globals.GetGlobalRef()
	g.FuncThrowException = ThrowException
	classloader.IntrinsicLookup = intrinsicLookup
	if g.ModuleConfig == nil {
		g.ModuleConfig = modules.New()
	}
	ModuleAccess = g.ModuleConfig
	MainThread = thread.NewThread("main")
}

// ThrowException is the real implementation behind
// globals.Globals.FuncThrowException: it builds a JVMError-flavored Go
// error for the given exception kind. Synchronous callers (classloader,
// gfunction) propagate it as a Go error; the interpreter's own
// instruction dispatch additionally walks the current frame's exception
// table before giving up (see findHandler in run.go).
func ThrowException(kind excNames.ExceptionType, msg string) error {
	trace.Error(fmt.Sprintf("%s: %s", kind.String(), msg))
	return fmt.Errorf("%s: %s", kind.String(), msg)
}

// showFrameStack prints every frame on th's call stack, most recent
// first, the way a JVM crash dump lists "Method: Class.method PC: nnn"
// for each active call. It prints at most once per fatal error
// (§ ambient diagnostics), tracked by globals.JvmFrameStackShown.
func showFrameStack(th *thread.JavaThread) {
	g := globals.GetGlobalRef()
	if g.JvmFrameStackShown {
		return
	}
	g.JvmFrameStackShown = true

	if th == nil || th.Stack.Len() == 0 {
		fmt.Fprintln(os.Stderr, "no further data available")
		return
	}

	for i := th.Stack.Len() - 1; i >= 0; i-- {
		f := th.Stack.FrameAt(i)
		fmt.Fprintf(os.Stderr, "Method: %s.%-30s PC: %03d\n", f.ClName, f.MethName, f.PC)
	}
}

// showGoStackTrace prints a captured Go panic stack exactly once.
func showGoStackTrace(cause interface{}) {
	g := globals.GetGlobalRef()
	if g.GoStackShown {
		return
	}
	g.GoStackShown = true
	if g.ErrorGoStack != "" {
		fmt.Fprintln(os.Stderr, g.ErrorGoStack)
	} else {
		fmt.Fprintln(os.Stderr, string(debug.Stack()))
	}
}

// showPanicCause prints the Go error that caused a panic, exactly once.
func showPanicCause(cause error) {
	g := globals.GetGlobalRef()
	if g.PanicCauseShown {
		return
	}
	g.PanicCauseShown = true
	if cause == nil {
		fmt.Fprintln(os.Stderr, "error: go panic -- cause unknown")
		return
	}
	fmt.Fprintf(os.Stderr, "error: go panic -- cause: %s\n", cause.Error())
}
