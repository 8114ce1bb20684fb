/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package types holds the constants and small shared types used across
// the classloader, verifier, and interpreter: descriptor grammar
// letters, field-type strings, and the string-pool index sentinels.
package types

// Field/descriptor type letters/strings, as used throughout the JVM spec
// (§4.3.2) and mirrored on every JVM field and parameter.
const (
	Bool      = "Z"
	Byte      = "B"
	Char      = "C"
	Double    = "D"
	Float     = "F"
	Int       = "I"
	Long      = "J"
	Short     = "S"
	Void      = "V"
	Ref       = "L" // prefix for object types: L<name>;
	Array     = "["
	RefArray  = "[L"
	ByteArray = "[B"
)

// Category-2 (double-slot) verification/runtime value kinds.
func IsCategory2(fieldType string) bool {
	return fieldType == Long || fieldType == Double
}

// InvalidStringIndex marks a string-pool lookup failure.
const InvalidStringIndex = ^uint32(0)

// ObjectPoolStringIndex is the well-known string-pool index of
// "java/lang/Object"; the string pool interns that name first, at
// this index.
const ObjectPoolStringIndex uint32 = 1

// ClInit status values for ClData.ClInit.
const (
	NoClinit      byte = 0
	ClInitNotRun  byte = 1
	ClInitRun     byte = 2
)

// JavaByte represents a Java byte (signed 8-bit) kept distinct from a Go
// byte so that byte arrays round-trip through Unsafe/Buffer code without
// sign-extension surprises.
type JavaByte int8
