/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package shutdown centralizes the VM's process-exit codes, so that
// every abrupt-exit site (uncaught exception, startup registration
// collision, malformed class) agrees on what number it returns.
package shutdown

import "os"

type ExitStatus int

const (
	OK            ExitStatus = 0
	JVM_EXCEPTION ExitStatus = 1
	APP_EXCEPTION ExitStatus = 2
	UNHANDLED_EXCEPTION ExitStatus = 3
)

// exitFunc is swapped out in tests so that Exit doesn't actually
// terminate the test binary.
var exitFunc = os.Exit

func Exit(status ExitStatus) {
	exitFunc(int(status))
}

// SetExitFunc lets tests observe/intercept the exit path.
func SetExitFunc(f func(int)) {
	exitFunc = f
}
