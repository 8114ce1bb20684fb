/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// The method area: the registry of loaded classes (MethArea) and the
// per-method dispatch cache (MTable), grounded on jacobin's
// MethAreaFetch/MethAreaInsert/FetchMethodAndCP (classes.go,
// classloader.go). Concurrent loads of the same class name are
// deduplicated with golang.org/x/sync/singleflight instead of the
// teacher's hand-rolled per-name mutex map, so two threads racing to
// resolve the same not-yet-loaded class block on one load rather than
// both parsing it.
package classloader

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"jacobin/excNames"
	"jacobin/exceptions"
	"jacobin/globals"
)

// IntrinsicLookup is wired up by jvm.Init (which the launcher calls
// with gfunction.Lookup) so FetchMethodAndCP can consult the intrinsic registry
// without classloader importing gfunction, which imports classloader
// for CPool/object-field types and would create a cycle. majorVersion
// is the declaring class's class-file major version (§4.5 "filtered
// by the calling class file's version" / §6 "major version ... drives
// intrinsic predicates").
var IntrinsicLookup func(fqn string, majorVersion int) (interface{}, bool)

var (
	methAreaMu sync.RWMutex
	methArea   = make(map[string]*Klass)

	loadGroup singleflight.Group
)

// MTentry is one method-table entry: either Java bytecode ('J') or a
// Go intrinsic ('G').
type MTentry struct {
	Meth  interface{}
	MType byte
}

var (
	mTableMu sync.RWMutex
	mTable   = make(map[string]MTentry)
)

// MethAreaFetch returns the loaded class entry, or nil if not present.
func MethAreaFetch(className string) *Klass {
	methAreaMu.RLock()
	defer methAreaMu.RUnlock()
	return methArea[className]
}

// MethAreaInsert registers a class entry, overwriting any prior entry
// of the same name (re-registration during tests).
func MethAreaInsert(className string, k *Klass) {
	methAreaMu.Lock()
	defer methAreaMu.Unlock()
	methArea[className] = k
}

// MethAreaSize reports how many classes are currently registered.
func MethAreaSize() int {
	methAreaMu.RLock()
	defer methAreaMu.RUnlock()
	return len(methArea)
}

// ResetMethodArea clears all loaded classes and cached method-table
// entries. Used between tests.
func ResetMethodArea() {
	methAreaMu.Lock()
	methArea = make(map[string]*Klass)
	methAreaMu.Unlock()
	mTableMu.Lock()
	mTable = make(map[string]MTentry)
	mTableMu.Unlock()
}

// LoadPreParsedClass registers a class that has already been parsed,
// format-checked, and verified by the caller (§1: class-file parsing
// is out of scope; the VM consumes pre-parsed classes). Concurrent
// registrations of the same name are deduplicated via singleflight so
// only the first caller's data wins.
func LoadPreParsedClass(className string, data *ClData) error {
	_, err, _ := loadGroup.Do(className, func() (interface{}, error) {
		if MethAreaFetch(className) != nil {
			return nil, nil
		}
		MethAreaInsert(className, &Klass{
			Status: StatusFormatChecked,
			Loader: "bootstrap",
			Data:   data,
		})
		return nil, nil
	})
	return err
}

// WaitForClassStatus blocks-in-effect (it is synchronous in this
// single-loader implementation) until className reaches at least
// StatusFormatChecked, or reports an error if it was never loaded.
func WaitForClassStatus(className string) error {
	if MethAreaFetch(className) == nil {
		return exceptions.New(excNames.ClassNotFoundException, className)
	}
	return nil
}

// FetchMethodAndCP finds a method by its fully qualified name+type,
// checking the MTable cache before registering it from the class's
// method table or the gfunction intrinsic registry.
func FetchMethodAndCP(className, methName, methType string) (MTentry, error) {
	fqn := className + "." + methName + methType
	major := majorVersionOf(className)
	cacheKey := fmt.Sprintf("%s@%d", fqn, major)

	mTableMu.RLock()
	if e, ok := mTable[cacheKey]; ok {
		mTableMu.RUnlock()
		return e, nil
	}
	mTableMu.RUnlock()

	if IntrinsicLookup != nil {
		if g, ok := IntrinsicLookup(fqn, major); ok {
			entry := MTentry{Meth: g, MType: 'G'}
			mTableMu.Lock()
			mTable[cacheKey] = entry
			mTableMu.Unlock()
			return entry, nil
		}
	}

	k := MethAreaFetch(className)
	if k == nil {
		return MTentry{}, exceptions.New(excNames.ClassNotFoundException, className)
	}
	m, ok := k.Data.MethodTable[methName+methType]
	if !ok {
		return MTentry{}, exceptions.Newf(excNames.ClassFormatError,
			"method %s not found in class %s", fqn, className)
	}
	entry := MTentry{Meth: m, MType: 'J'}
	mTableMu.Lock()
	mTable[cacheKey] = entry
	mTableMu.Unlock()
	return entry, nil
}

// majorVersionOf returns the declaring class's class-file major
// version for intrinsic version-predicate filtering, falling back to
// the VM's own supported major version when the class is unregistered
// or its version is unknown (host-only classes like jdk/internal/misc/
// Unsafe typically have no parsed ClData at all).
func majorVersionOf(className string) int {
	if k := MethAreaFetch(className); k != nil && k.Data != nil && k.Data.MajorVersion > 0 {
		return k.Data.MajorVersion
	}
	return globals.GetGlobalRef().MaxJavaVersionRaw
}

func noMainError(className string) error {
	return fmt.Errorf("class %s has no main method", className)
}
