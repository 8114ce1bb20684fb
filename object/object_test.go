/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectToStringWithFields(t *testing.T) {
	obj := NewObjectOfClass("java/lang/madeUpClass")

	obj.FieldTable["myFloat"] = Field{Ftype: "F", Fvalue: 1.0}
	obj.FieldTable["myDouble"] = Field{Ftype: "D", Fvalue: 2.0}
	obj.FieldTable["myInt"] = Field{Ftype: "I", Fvalue: 42}
	obj.FieldTable["myLong"] = Field{Ftype: "J", Fvalue: int64(42)}
	obj.FieldTable["myShort"] = Field{Ftype: "S", Fvalue: 42}
	obj.FieldTable["myByte"] = Field{Ftype: "B", Fvalue: 0x61}
	obj.FieldTable["myFalse"] = Field{Ftype: "Z", Fvalue: false}
	obj.FieldTable["myChar"] = Field{Ftype: "C", Fvalue: 'C'}
	obj.FieldTable["myString"] = Field{Ftype: "Ljava/lang/String;", Fvalue: "Hello, Unka Andoo!"}

	str := obj.ToString()
	assert.NotEmpty(t, str)
	assert.Contains(t, str, "java/lang/madeUpClass")
	assert.Contains(t, str, "myInt")
}

func TestObjectToStringEmptyClass(t *testing.T) {
	obj := MakeEmptyObject()
	assert.Contains(t, obj.ToString(), "<anonymous>")
}

func TestStringObjectRoundTrip(t *testing.T) {
	literal := "This is a compact string from a Go string"
	obj := StringObjectFromGoString(literal)
	assert.True(t, obj.IsStringObject())
	assert.Equal(t, literal, GoStringFromStringObject(obj))
}

func TestNewStringObjectIsEmpty(t *testing.T) {
	obj := NewStringObject()
	assert.Equal(t, "", GoStringFromStringObject(obj))
}

func TestIdentityHashesAreUnique(t *testing.T) {
	a := MakeEmptyObject()
	b := MakeEmptyObject()
	assert.NotEqual(t, a.Mark.Hash, b.Mark.Hash)
}

func TestJavaByteArrayRoundTrip(t *testing.T) {
	original := "round trip me"
	jb := JavaByteArrayFromGoString(original)
	assert.Equal(t, original, GoStringFromJavaByteArray(jb))

	obj := StringObjectFromJavaByteArray(jb)
	assert.Equal(t, jb, JavaByteArrayFromStringObject(obj))
}

func TestJavaByteArrayEquals(t *testing.T) {
	a := JavaByteArrayFromGoString("abc")
	b := JavaByteArrayFromGoString("abc")
	c := JavaByteArrayFromGoString("ABC")
	assert.True(t, JavaByteArrayEquals(a, b))
	assert.False(t, JavaByteArrayEquals(a, c))
	assert.True(t, JavaByteArrayEqualsIgnoreCase(a, c))
}
