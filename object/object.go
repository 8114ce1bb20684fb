/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package object models the runtime representation of a Java object:
// its class identity, its named fields, and the identity hash the JVM
// memory model exposes through System.identityHashCode and the
// Unsafe/CAS intrinsics. Grounded on jacobin's object package
// (javaByteArray.go, object_test.go); reconciled here onto one field
// model (a name-keyed FieldTable) since the retrieved fragments showed
// two competing shapes across jacobin versions — an index-keyed
// []Field slice and a name-keyed map[string]Field/*Field — and getfield/
// putfield/Unsafe field-offset lookups all need to resolve a field by
// name, which only the map shape supports without a parallel index.
package object

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"jacobin/stringpool"
	"jacobin/types"
)

// identityCounter hands out monotonically increasing identity hashes,
// standing in for jacobin's address-derived Mark.Hash (this module has
// no real heap address to borrow bits from, and a fabricated one would
// not be stable across a moving Go GC).
var identityCounter uint32

// Mark is the object header jacobin calls the "mark word": today it
// carries only the identity hash (§1's object model does not require
// lock/biasing bits).
type Mark struct {
	Hash uint32
}

// Field is one field slot: its descriptor type and its current value.
// Reference-typed fields hold *Object or nil; array-typed fields hold
// a Go slice of the appropriate element type.
type Field struct {
	Ftype  string
	Fvalue interface{}
}

// Object is a Java object: a class, a set of named fields, and an
// identity hash. KlassName is a string-pool index rather than a class
// name string so that two objects of the same class can compare class
// identity with an integer equality instead of a string compare.
type Object struct {
	KlassName  uint32
	FieldTable map[string]Field
	Mark       Mark
}

// MakeEmptyObject allocates an Object with no class set and an empty
// field table, assigning it the next identity hash.
func MakeEmptyObject() *Object {
	return &Object{
		FieldTable: make(map[string]Field),
		Mark:       Mark{Hash: atomic.AddUint32(&identityCounter, 1)},
	}
}

// NewObjectOfClass allocates an Object for the named class, interning
// the name into the string pool if it isn't already there.
func NewObjectOfClass(className string) *Object {
	obj := MakeEmptyObject()
	obj.KlassName = stringpool.GetStringIndex(className)
	return obj
}

// ClassName returns the object's class name.
func (o *Object) ClassName() string {
	return stringpool.GetStringVal(o.KlassName)
}

// IsStringObject reports whether this object is an instance of
// java/lang/String.
func (o *Object) IsStringObject() bool {
	return o.ClassName() == "java/lang/String"
}

// NewStringObject allocates an empty java/lang/String object with its
// backing byte-array "value" field initialized to empty.
func NewStringObject() *Object {
	obj := NewObjectOfClass("java/lang/String")
	obj.FieldTable["value"] = Field{Ftype: types.ByteArray, Fvalue: []types.JavaByte{}}
	return obj
}

// StringObjectFromGoString builds a java/lang/String object whose
// "value" field holds str's bytes.
func StringObjectFromGoString(str string) *Object {
	obj := NewObjectOfClass("java/lang/String")
	obj.FieldTable["value"] = Field{Ftype: types.ByteArray, Fvalue: JavaByteArrayFromGoString(str)}
	return obj
}

// GoStringFromStringObject extracts the Go string behind a
// java/lang/String object's "value" field.
func GoStringFromStringObject(obj *Object) string {
	if obj == nil {
		return ""
	}
	fld, ok := obj.FieldTable["value"]
	if !ok {
		return ""
	}
	switch v := fld.Fvalue.(type) {
	case []types.JavaByte:
		return GoStringFromJavaByteArray(v)
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

// ToString renders an object for debugging/trace output: its class
// name followed by each field's name, descriptor, and value, sorted by
// field name for determinism.
func (o *Object) ToString() string {
	var sb strings.Builder
	className := o.ClassName()
	if className == "" {
		className = "<anonymous>"
	}
	sb.WriteString(fmt.Sprintf("class %s {\n", className))

	names := make([]string, 0, len(o.FieldTable))
	for n := range o.FieldTable {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		f := o.FieldTable[n]
		sb.WriteString(fmt.Sprintf("  %s %s = %v\n", f.Ftype, n, f.Fvalue))
	}
	sb.WriteString("}")
	return sb.String()
}
