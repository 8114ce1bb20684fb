/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package globals holds the VM-wide singleton: command-line-derived
// configuration, verification strictness, and the hook the
// classloader/interpreter use to raise a Java exception without
// importing the jvm package (which would create an import cycle).
// Modeled on jacobin's jacobin/globals package.
package globals

import (
	"os"
	"strings"
	"sync"

	"jacobin/excNames"
	"jacobin/modules"
)

// VerifyLevel controls how much of the verifier runs.
const (
	VerifyNone   = 0 // skip the type-safety prover; structural checks only
	VerifyStrict = 1 // §4.1 rule 6: unknown hierarchy answers are verify errors
	VerifyLenient = 2 // §4.1 rule 6: unknown hierarchy answers succeed
)

// Globals contains process-wide VM state, analogous to jacobin's
// Globals struct (jacobin/globals/globals.go).
type Globals struct {
	Version     string
	VmModel     string
	ExitNow     bool

	JacobinName string
	Args        []string
	CommandLine string

	StartingClass string
	StartingJar   string
	AppArgs       []string

	MaxJavaVersion    int
	MaxJavaVersionRaw int
	VerifyLevel       int

	JavaHome    string
	JacobinHome string

	// ModuleConfig is the process-wide module access engine (§4.6),
	// seeded at startup from --add-reads/--add-exports/--add-opens
	// and consulted afterward through jvm.ModuleAccess, which jvm.Init
	// points at this same engine.
	ModuleConfig *modules.State

	// ---- tracing switches, consulted by hot paths to avoid the
	// cost of a function call when tracing is off ----
	TraceClass    bool
	TraceCloadi   bool
	TraceVerifier bool
	TraceInst     bool

	// FuncThrowException lets packages that must not import jvm
	// (classloader, gfunction) raise a Java exception through the
	// interpreter's real throw path. It is wired up by jvm.Init().
	FuncThrowException func(excType excNames.ExceptionType, msg string) error

	// ---- once-only fatal-error diagnostics, consulted by jvm's
	// showFrameStack/showGoStackTrace/showPanicCause ----
	JvmFrameStackShown bool
	GoStackShown       bool
	ErrorGoStack       string
	PanicCauseShown    bool
}

var (
	mu     sync.RWMutex
	global Globals
)

// InitGlobals initializes global state known at start-up. Safe to
// call more than once (e.g. between test cases).
func InitGlobals(progName string) Globals {
	mu.Lock()
	defer mu.Unlock()
	global = Globals{
		Version:           "0.1.0",
		VmModel:           "server",
		ExitNow:           false,
		JacobinName:       progName,
		MaxJavaVersion:    17,
		MaxJavaVersionRaw: 61,
		VerifyLevel:       VerifyStrict,
		FuncThrowException: func(excNames.ExceptionType, string) error { return nil },
		ModuleConfig:      modules.New(),
	}
	initJavaHome()
	initJacobinHome()
	return global
}

// GetGlobalRef returns a pointer to the singleton instance of Globals.
func GetGlobalRef() *Globals {
	mu.RLock()
	defer mu.RUnlock()
	return &global
}

func initJacobinHome() {
	home := os.Getenv("JACOBIN_HOME")
	if home != "" && !strings.HasSuffix(home, string(os.PathSeparator)) {
		home += string(os.PathSeparator)
	}
	global.JacobinHome = home
}

func initJavaHome() {
	home := os.Getenv("JAVA_HOME")
	if home != "" && !strings.HasSuffix(home, string(os.PathSeparator)) {
		home += string(os.PathSeparator)
	}
	global.JavaHome = home
}

func JacobinHome() string { return GetGlobalRef().JacobinHome }
func JavaHome() string    { return GetGlobalRef().JavaHome }

// IsStrict reports whether the verifier runs in strict mode (§4.1
// rule 6). Fixed at VM construction, as the spec requires.
func IsStrict() bool {
	return GetGlobalRef().VerifyLevel == VerifyStrict
}
