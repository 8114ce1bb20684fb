/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"errors"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jacobin/frames"
	"jacobin/globals"
	"jacobin/thread"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	normal := os.Stderr
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	os.Stderr = w
	fn()
	_ = w.Close()
	os.Stderr = normal
	out, _ := io.ReadAll(r)
	return string(out)
}

func TestShowFrameStackWhenPreviouslyShown(t *testing.T) {
	globals.InitGlobals("test")
	globals.GetGlobalRef().JvmFrameStackShown = true
	th := thread.NewThread("main")

	out := captureStderr(t, func() { showFrameStack(th) })
	assert.Empty(t, out)
}

func TestShowFrameStackWithEmptyStack(t *testing.T) {
	globals.InitGlobals("test")
	globals.GetGlobalRef().JvmFrameStackShown = false
	th := thread.NewThread("main")

	out := captureStderr(t, func() { showFrameStack(th) })
	assert.Equal(t, "no further data available\n", out)
}

func TestShowFrameStackWithOneEntry(t *testing.T) {
	globals.InitGlobals("test")
	globals.GetGlobalRef().JvmFrameStackShown = false

	f := frames.CreateFrame(1)
	f.MethName = "main"
	f.ClName = "testClass"
	f.PC = 42

	th := thread.NewThread("main")
	th.Stack.Push(f)

	out := captureStderr(t, func() { showFrameStack(th) })
	assert.Contains(t, out, "testClass.main")
	assert.Contains(t, out, "PC: 042")
}

func TestShowGoStackWhenPreviouslyCaptured(t *testing.T) {
	globals.InitGlobals("test")
	g := globals.GetGlobalRef()
	g.GoStackShown = false
	captured := string(debug.Stack())
	g.ErrorGoStack = captured
	firstLine := strings.Split(captured, "\n")[0]

	out := captureStderr(t, func() { showGoStackTrace(nil) })
	assert.Contains(t, out, firstLine)
}

func TestShowGoStackWhenPreviouslyShown(t *testing.T) {
	globals.InitGlobals("test")
	g := globals.GetGlobalRef()
	g.GoStackShown = true

	out := captureStderr(t, func() { showGoStackTrace(nil) })
	assert.Empty(t, out)
}

func TestShowPanicCause(t *testing.T) {
	globals.InitGlobals("test")
	globals.GetGlobalRef().PanicCauseShown = false

	out := captureStderr(t, func() { showPanicCause(errors.New("error causing panic")) })
	assert.Contains(t, out, "error causing panic")
}

func TestShowPanicCauseAfterAlreadyShown(t *testing.T) {
	globals.InitGlobals("test")
	globals.GetGlobalRef().PanicCauseShown = true

	out := captureStderr(t, func() { showPanicCause(errors.New("error causing panic")) })
	assert.Empty(t, out)
}

func TestShowPanicCauseNil(t *testing.T) {
	globals.InitGlobals("test")
	globals.GetGlobalRef().PanicCauseShown = false

	out := captureStderr(t, func() { showPanicCause(nil) })
	assert.Contains(t, out, "error: go panic -- cause unknown")
}
