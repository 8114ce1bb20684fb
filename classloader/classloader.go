/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"jacobin/trace"
	"jacobin/types"
)

// Classloader tracks how many classes a named loader has registered.
// Class-file parsing itself is out of scope (§1: the VM is handed
// pre-parsed classes); what survives from jacobin's classloader.go is
// the three-tier loader identity (bootstrap/extension/app) the method
// area records against each Klass, and the class-format-error
// reporting convention.
type Classloader struct {
	Name       string
	Parent     string
	ClassCount int
}

var (
	// AppCL is the application classloader, which registers most of the app's classes.
	AppCL Classloader
	// BootstrapCL is the classloader that registers the standard-library classes.
	BootstrapCL Classloader
	// ExtensionCL is the classloader typically used for agent/extension classes.
	ExtensionCL Classloader

	ClassesLock = sync.RWMutex{}
)

// cfe = class format error, the error returned for most malformed
// pre-parsed-class conditions. Prints the file/line where the call to
// cfe() occurred, the way jacobin's original cfe() does via
// runtime.Caller; here the stack is additionally captured by
// pkg/errors so the wrapping exceptions package can report it too.
func cfe(msg string) error {
	errMsg := "Class Format Error: " + msg

	pc, _, _, ok := runtime.Caller(1)
	if ok {
		fn := runtime.FuncForPC(pc)
		fileName, fileLine := fn.FileLine(pc)
		errMsg = errMsg + "\n  detected by file: " + filepath.Base(fileName) +
			", line: " + strconv.Itoa(fileLine)
	}
	trace.Error(errMsg)
	return errors.New(errMsg)
}

// CFE is the exported form of cfe, used by callers outside this file
// (e.g. intrinsic dispatch reporting a malformed descriptor).
func CFE(msg string) error { return cfe(msg) }

// GetCountOfLoadedClasses returns the number of classes registered
// through this classloader.
func (cl *Classloader) GetCountOfLoadedClasses() int {
	return cl.ClassCount
}

// RegisterClass posts a pre-parsed, format-checked class to the method
// area under this loader's name and bumps its count. This is the
// in-scope replacement for jacobin's ParseAndPostClass: the caller
// (an embedder, or a test) supplies ClData directly instead of raw
// .class bytes, since parsing those bytes is out of scope.
func (cl *Classloader) RegisterClass(className string, data *ClData) error {
	if className == "" {
		return cfe("RegisterClass: empty class name")
	}
	if err := LoadPreParsedClass(className, data); err != nil {
		return err
	}
	methAreaMu.Lock()
	if k := methArea[className]; k != nil && k.Data == data {
		k.Loader = cl.Name
	}
	methAreaMu.Unlock()
	ClassesLock.Lock()
	cl.ClassCount++
	ClassesLock.Unlock()
	return nil
}

// normalizeClassReference converts a class-file class reference into
// a plain z/y/x binary name, unwrapping a single array-of-reference
// level and discarding primitive-array references outright.
func normalizeClassReference(ref string) string {
	refClassName := ref
	if strings.HasPrefix(refClassName, types.RefArray) {
		refClassName = strings.TrimPrefix(refClassName, types.RefArray)
		refClassName = strings.TrimSuffix(refClassName, ";")
	} else if strings.HasPrefix(refClassName, types.Array) {
		refClassName = ""
	}
	return refClassName
}

// Init initializes the three classloaders, points them at each other
// in the standard parent order, and resets the method area. Base
// (java.base) classes are not loaded from a jmod here (out of scope,
// §1); an embedder registers whatever pre-parsed bootstrap classes it
// needs via RegisterClass after Init returns.
func Init() error {
	BootstrapCL = Classloader{Name: "bootstrap", Parent: ""}
	ExtensionCL = Classloader{Name: "extension", Parent: "bootstrap"}
	AppCL = Classloader{Name: "app", Parent: "extension"}

	ResetMethodArea()
	return nil
}
