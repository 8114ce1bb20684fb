/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Class initialization: running a class's <clinit> method exactly once
// before its first active use (§5.5 of the JVM spec). Grounded on
// jacobin's jvm/initializerBlock.go, rewritten against
// frames.FrameStack/thread.JavaThread instead of the teacher's
// container/list-backed frame stack and its now-removed
// classloader.MData/JmEntry globals.
package jvm

import (
	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/exceptions"
	"jacobin/thread"
	"jacobin/trace"
)

// clinitDone records each class whose <clinit> has been started, so a
// diamond of static dependencies runs each class's initializer once
// (§5.5 "class in the process of being initialized"). A class is marked
// before its initializer runs; there is no separate in-progress state.
var clinitDone = make(map[string]bool)

// RunClassInitializer runs className's <clinit>()V if present and not
// already run. A class with no <clinit> (the common case) is a no-op,
// as the spec permits.
func RunClassInitializer(th *thread.JavaThread, className string) error {
	if clinitDone[className] {
		return nil
	}
	clinitDone[className] = true

	entry, err := classloader.FetchMethodAndCP(className, "<clinit>", "()V")
	if err != nil {
		// No <clinit> registered for this class is expected, not an error.
		return nil
	}

	trace.Trace("running <clinit> for " + className)

	switch entry.MType {
	case 'G':
		_, gerr := runGmethod(th, entry, nil)
		return gerr
	case 'J':
		_, jerr := runFrame(th, className, entry, nil)
		return jerr
	default:
		return exceptions.Newf(excNames.InternalError, "unknown <clinit> entry type %q", entry.MType)
	}
}
