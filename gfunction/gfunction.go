/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package gfunction holds the "go function" intrinsics: standard
// library methods implemented directly in Go rather than in bytecode
// (java.lang.String, java.util.HashMap, java.io.InputStreamReader,
// jdk.internal.misc.*, Unsafe, and friends). Every intrinsic is
// registered in MethodSignatures under its fully qualified
// "class.name(desc)" key, the same key classloader.FetchMethodAndCP
// looks up. Grounded on jacobin's gfunction package layout (one
// Load_Xxx per class, a class/method/desc string key, a
// []interface{}-params calling convention) as shown by every
// already-retrieved gfunction/*.go file; the registry and error-block
// machinery those files call (MethodSignatures, GMeth, GErrBlk,
// getGErrBlk, justReturn, trapFunction) were themselves never present
// in the retrieved fragments, so they are reconstructed here from the
// call sites' shape (see DESIGN.md).
package gfunction

import (
	"fmt"
	"math"
	"sync"

	"jacobin/excNames"
	"jacobin/thread"
)

// GFunction is the calling convention every intrinsic method obeys:
// the call's arguments as Go values, one entry per parameter of the
// method descriptor and preceded by the receiver for an instance
// method (jvm's invokeFromCP builds this slice; GMeth.ParamSlots is
// not consulted there), and a Go return value — nil for void, a
// *GErrBlk to signal a pending exception.
type GFunction func(params []interface{}) interface{}

// GFunctionThread is the calling convention for intrinsics that need
// the invoking thread itself (park/unpark, interrupt checks) — the
// spec's "receive (thread, parameters)" contract (§4.5) in full; most
// intrinsics only touch parameters and use the plain GFunction form.
type GFunctionThread func(th *thread.JavaThread, params []interface{}) interface{}

// GMeth is one constant-pool-resolvable method entry, keyed by its
// fully qualified name+descriptor in MethodSignatures (or, for
// version-predicated registrations, in the versioned registry below).
type GMeth struct {
	ParamSlots  int
	GFunction   GFunction
	GFunctionTh GFunctionThread
	NeedsThread bool // true: dispatch through GFunctionTh with the calling thread
}

// MethodSignatures is the process-wide intrinsic-method table for
// intrinsics with a single, version-independent implementation (the
// overwhelming majority). It is populated by each package Load_Xxx
// function before any class is resolved; classloader.IntrinsicLookup
// (wired by jvm.Init) reads it as the fallback once the versioned
// registry below has been consulted.
var MethodSignatures = make(map[string]GMeth)

// VersionPredicateKind enumerates §3's "version predicate" variants.
type VersionPredicateKind int

const (
	Any VersionPredicateKind = iota
	Equal
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Between
)

// VersionPredicate is a predicate over a class file's major version
// (§3 "Intrinsic key"). Lo/Hi are interpreted per Kind: Equal/LessThan*/
// GreaterThan* use Lo only; Between uses [Lo, Hi] inclusive.
type VersionPredicate struct {
	Kind VersionPredicateKind
	Lo   int
	Hi   int
}

const (
	negInf = math.MinInt32
	posInf = math.MaxInt32
)

// interval reduces a predicate to the closed integer range of major
// versions it matches, so Matches/overlaps can share one comparison.
func (p VersionPredicate) interval() (int, int) {
	switch p.Kind {
	case Equal:
		return p.Lo, p.Lo
	case LessThan:
		return negInf, p.Lo - 1
	case LessThanOrEqual:
		return negInf, p.Lo
	case GreaterThan:
		return p.Lo + 1, posInf
	case GreaterThanOrEqual:
		return p.Lo, posInf
	case Between:
		return p.Lo, p.Hi
	default: // Any
		return negInf, posInf
	}
}

// Matches reports whether the given class-file major version satisfies p.
func (p VersionPredicate) Matches(major int) bool {
	lo, hi := p.interval()
	return major >= lo && major <= hi
}

// overlaps reports whether two predicates can both match some version,
// the condition registration must reject (§3 "Registration must not
// allow two entries with overlapping predicates for the same key").
func (p VersionPredicate) overlaps(q VersionPredicate) bool {
	lo1, hi1 := p.interval()
	lo2, hi2 := q.interval()
	return lo1 <= hi2 && lo2 <= hi1
}

type versionedEntry struct {
	Pred VersionPredicate
	Meth GMeth
}

var (
	versionedMu sync.Mutex
	versioned   = make(map[string][]versionedEntry)
)

// RegisterVersioned adds an intrinsic under an explicit version
// predicate, rejecting the registration (a startup error, per §3) if
// an existing entry for the same key has an overlapping predicate.
func RegisterVersioned(fqn string, pred VersionPredicate, gm GMeth) error {
	versionedMu.Lock()
	defer versionedMu.Unlock()
	for _, e := range versioned[fqn] {
		if e.Pred.overlaps(pred) {
			return fmt.Errorf("gfunction: overlapping version predicate registering %s", fqn)
		}
	}
	versioned[fqn] = append(versioned[fqn], versionedEntry{Pred: pred, Meth: gm})
	return nil
}

// GErrBlk is the sentinel a GFunction returns instead of a normal value
// to signal that it wants to raise a Java exception.
type GErrBlk struct {
	ExceptionType excNames.ExceptionType
	ErrMsg        string
}

func getGErrBlk(kind excNames.ExceptionType, msg string) *GErrBlk {
	return &GErrBlk{ExceptionType: kind, ErrMsg: msg}
}

// justReturn is the GFunction for intrinsics that are no-ops from the
// interpreter's point of view (registerNatives, most <clinit> blocks).
func justReturn(params []interface{}) interface{} { return nil }

// trapFunction marks an intrinsic that is recognized but deliberately
// unimplemented: calling it raises UnsatisfiedLinkError rather than
// silently doing nothing, so a caller can tell "not wired" apart from
// "wired to be a no-op".
func trapFunction(params []interface{}) interface{} {
	return getGErrBlk(excNames.UnsatisfiedLinkError, "intrinsic not implemented")
}

// Lookup is the function wired into classloader.IntrinsicLookup
// (by jvm.Init) so the method area can resolve an intrinsic without
// classloader importing gfunction (gfunction already imports
// classloader for CPool/object types, so that import would cycle).
func Lookup(fqn string, majorVersion int) (interface{}, bool) {
	versionedMu.Lock()
	entries, hasVersioned := versioned[fqn]
	versionedMu.Unlock()
	if hasVersioned {
		for _, e := range entries {
			if e.Pred.Matches(majorVersion) {
				return e.Meth, true
			}
		}
	}
	g, ok := MethodSignatures[fqn]
	if !ok {
		return nil, false
	}
	return g, true
}

// LoadAll populates MethodSignatures from every Load_Xxx registrar.
// Called once at VM start-up, before any class resolution.
func LoadAll() {
	Load_Io_InputStreamReader()
	Load_Lang_String()
	Load_Lang_StringBuilder()
	Load_Lang_Thread()
	Load_Util_HashMap()
	Load_Jdk_Internal_Misc_ScopedMemoryAccess()
	Load_Jdk_Internal_Misc_Unsafe()
	Load_Jdk_Jfr_Internal_JVM()
	Load_Sun_Nio_Fs_UnixNativeDispatcher()
	Load_Lang_NullPointerException()
}
