/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func minimalCP() CPool {
	return CPool{
		CpIndex:  []CpEntry{{Dummy, 0}, {UTF8, 0}},
		Utf8Refs: []string{"testMethod"},
	}
}

func TestFormatCheckValidPool(t *testing.T) {
	data := &ClData{CP: minimalCP()}
	err := FormatCheckClass(data, 2)
	assert.NoError(t, err)
}

func TestFormatCheckWrongCpCount(t *testing.T) {
	data := &ClData{CP: minimalCP()}
	err := FormatCheckClass(data, 4)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "constant pool count")
}

func TestFormatCheckMissingInitialDummy(t *testing.T) {
	cp := CPool{
		CpIndex:  []CpEntry{{UTF8, 0}},
		Utf8Refs: []string{"x"},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dummy entry")
}

func TestFormatCheckUTF8SlotOutOfRange(t *testing.T) {
	cp := CPool{
		CpIndex:  []CpEntry{{Dummy, 0}, {UTF8, 4}},
		Utf8Refs: []string{"Exceptions", "testMethod"},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 2)
	assert.Error(t, err)
}

func TestFormatCheckInvalidUTF8Bytes(t *testing.T) {
	invalid := []byte{0xff, 0xfe, 0xfd}
	cp := CPool{
		CpIndex:  []CpEntry{{Dummy, 0}, {UTF8, 0}},
		Utf8Refs: []string{string(invalid)},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 2)
	assert.Error(t, err)
}

func TestFormatCheckIntConst(t *testing.T) {
	cp := CPool{
		CpIndex:   []CpEntry{{Dummy, 0}, {IntConst, 1}},
		IntConsts: []int32{42},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 2)
	assert.Error(t, err, "slot 1 points past the single recorded int constant")

	data.CP.IntConsts = append(data.CP.IntConsts, 43)
	err = FormatCheckClass(data, 2)
	assert.NoError(t, err)
}

func TestFormatCheckLongConstNeedsDummyFollower(t *testing.T) {
	cp := CPool{
		CpIndex:    []CpEntry{{Dummy, 0}, {LongConst, 0}, {UTF8, 0}},
		LongConsts: []int64{123},
		Utf8Refs:   []string{"notADummy"},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 3)
	assert.Error(t, err)

	cp.CpIndex[2] = CpEntry{Dummy, 0}
	err = FormatCheckClass(data, 3)
	assert.NoError(t, err)
}

func TestFormatCheckDoubleConstNeedsDummyFollower(t *testing.T) {
	cp := CPool{
		CpIndex: []CpEntry{{Dummy, 0}, {DoubleConst, 0}, {Dummy, 0}},
		Doubles: []float64{3.14159},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 3)
	assert.NoError(t, err)
}

func TestFormatCheckUnknownEntryType(t *testing.T) {
	cp := CPool{
		CpIndex: []CpEntry{{Dummy, 0}, {99, 0}},
	}
	data := &ClData{CP: cp}
	err := FormatCheckClass(data, 2)
	assert.Error(t, err)
}
