/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/exceptions"
	"jacobin/frames"
	"jacobin/gfunction"
	"jacobin/opcodes"
	"jacobin/statics"
	"jacobin/thread"
)

func newTestFrame(maxStack int, code []byte) *frames.Frame {
	f := frames.CreateFrame(maxStack)
	f.Meth = code
	f.Locals = make([]interface{}, 4)
	f.CP = &classloader.CPool{CpIndex: []classloader.CpEntry{{}}}
	return f
}

func TestRunFrameIntegerAdd(t *testing.T) {
	code := []byte{opcodes.BIPUSH, 2, opcodes.BIPUSH, 3, opcodes.IADD, opcodes.IRETURN}
	f := newTestFrame(4, code)
	th := thread.NewThread("main")

	ret, err := RunFrame(th, f)
	require.NoError(t, err)
	assert.Equal(t, int32(5), ret)
}

func TestRunFrameIntegerDivisionByZero(t *testing.T) {
	code := []byte{opcodes.ICONST_1, opcodes.ICONST_0, opcodes.IDIV, opcodes.IRETURN}
	f := newTestFrame(4, code)
	th := thread.NewThread("main")

	_, err := RunFrame(th, f)
	require.Error(t, err)
	assert.True(t, exceptions.Is(err, excNames.ArithmeticException))
}

func TestRunFrameIincAndBranch(t *testing.T) {
	// locals[0] = 0; while (locals[0] != 3) locals[0]++; return locals[0];
	code := []byte{
		opcodes.ICONST_0, opcodes.ISTORE_0, // 0,1: locals[0] = 0
		opcodes.ILOAD_0, opcodes.ICONST_3, // 2,3: loop start; compare
		opcodes.IF_ICMPEQ, 0x00, 0x09, // 4-6: if equal, branch +9 to pc 13
		opcodes.IINC, 0x00, 0x01, // 7-9: locals[0]++
		opcodes.GOTO, 0xFF, 0xF8, // 10-12: goto -8 -> pc 2
		opcodes.ILOAD_0, opcodes.IRETURN, // 13,14
	}
	f := newTestFrame(4, code)
	th := thread.NewThread("main")

	ret, err := RunFrame(th, f)
	require.NoError(t, err)
	assert.Equal(t, int32(3), ret)
}

func TestRunFrameFcmpgNaN(t *testing.T) {
	nan := float32(0.0)
	nan = nan / nan
	f := newTestFrame(4, nil)
	f.Push(nan)
	f.Push(float32(1.0))
	v := fcmp(float64(nan), 1.0, true)
	assert.Equal(t, int32(1), v)
	v = fcmp(float64(nan), 1.0, false)
	assert.Equal(t, int32(-1), v)
}

func fieldRefCP(className, fieldName, fieldType string) *classloader.CPool {
	cp := &classloader.CPool{}
	cp.CpIndex = make([]classloader.CpEntry, 7)
	cp.Utf8Refs = []string{className, fieldName, fieldType}
	cp.CpIndex[1] = classloader.CpEntry{Type: classloader.UTF8, Slot: 0}
	cp.CpIndex[3] = classloader.CpEntry{Type: classloader.UTF8, Slot: 1}
	cp.CpIndex[4] = classloader.CpEntry{Type: classloader.UTF8, Slot: 2}
	cp.ClassRefs = []uint16{1}
	cp.CpIndex[2] = classloader.CpEntry{Type: classloader.ClassRef, Slot: 0}
	cp.NameAndTypes = []classloader.NameAndTypeEntry{{NameIndex: 3, DescIndex: 4}}
	cp.CpIndex[5] = classloader.CpEntry{Type: classloader.NameAndType, Slot: 0}
	cp.FieldRefs = []classloader.FieldRefEntry{{ClassIndex: 2, NameAndType: 5}}
	cp.CpIndex[6] = classloader.CpEntry{Type: classloader.FieldRef, Slot: 0}
	return cp
}

func TestStaticFieldRoundTrip(t *testing.T) {
	statics.Reset()
	classloader.ResetMethodArea()

	cp := fieldRefCP("pkg/Holder", "counter", "I")
	code := []byte{
		opcodes.BIPUSH, 7,
		opcodes.PUTSTATIC, 0x00, 0x06,
		opcodes.GETSTATIC, 0x00, 0x06,
		opcodes.IRETURN,
	}
	f := newTestFrame(4, code)
	f.CP = cp
	th := thread.NewThread("main")

	ret, err := RunFrame(th, f)
	require.NoError(t, err)
	assert.Equal(t, int32(7), ret)
}

func methodRefCP(className, methodName, methodType string) *classloader.CPool {
	cp := &classloader.CPool{}
	cp.CpIndex = make([]classloader.CpEntry, 7)
	cp.Utf8Refs = []string{className, methodName, methodType}
	cp.CpIndex[1] = classloader.CpEntry{Type: classloader.UTF8, Slot: 0}
	cp.CpIndex[3] = classloader.CpEntry{Type: classloader.UTF8, Slot: 1}
	cp.CpIndex[4] = classloader.CpEntry{Type: classloader.UTF8, Slot: 2}
	cp.ClassRefs = []uint16{1}
	cp.CpIndex[2] = classloader.CpEntry{Type: classloader.ClassRef, Slot: 0}
	cp.NameAndTypes = []classloader.NameAndTypeEntry{{NameIndex: 3, DescIndex: 4}}
	cp.CpIndex[5] = classloader.CpEntry{Type: classloader.NameAndType, Slot: 0}
	cp.MethodRefs = []classloader.MethodRefEntry{{ClassIndex: 2, NameAndType: 5}}
	cp.CpIndex[6] = classloader.CpEntry{Type: classloader.MethodRef, Slot: 0}
	return cp
}

func TestInvokeStaticDispatchesToIntrinsic(t *testing.T) {
	classloader.ResetMethodArea()
	defer func() { classloader.IntrinsicLookup = nil }()

	doubleIt := gfunction.GMeth{
		ParamSlots: 1,
		GFunction: func(params []interface{}) interface{} {
			return params[0].(int32) * 2
		},
	}
	classloader.IntrinsicLookup = func(fqn string, majorVersion int) (interface{}, bool) {
		if fqn == "pkg/Math.double(I)I" {
			return doubleIt, true
		}
		return nil, false
	}

	cp := methodRefCP("pkg/Math", "double", "(I)I")
	code := []byte{
		opcodes.BIPUSH, 21,
		opcodes.INVOKESTATIC, 0x00, 0x06,
		opcodes.IRETURN,
	}
	f := newTestFrame(4, code)
	f.CP = cp
	th := thread.NewThread("main")

	ret, err := RunFrame(th, f)
	require.NoError(t, err)
	assert.Equal(t, int32(42), ret)
}

func TestAthrowCaughtByExceptionTable(t *testing.T) {
	code := []byte{
		opcodes.NOP, // 0: placeholder so ATHROW isn't at pc 0
		opcodes.ATHROW,
		opcodes.ICONST_1, opcodes.IRETURN, // handler: return 1
	}
	f := newTestFrame(4, code)
	f.PC = 0
	exTable := []classloader.CodeException{{StartPc: 0, EndPc: 2, HandlerPc: 2, CatchType: 0}}
	f.ExceptionTable = &exTable
	f.Push(exceptions.New(excNames.NullPointerException, "boom"))
	f.PC = 1
	th := thread.NewThread("main")

	ret, err := RunFrame(th, f)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ret)
}

func TestAthrowUncaughtPropagates(t *testing.T) {
	code := []byte{opcodes.ATHROW}
	f := newTestFrame(4, code)
	f.Push(exceptions.New(excNames.NullPointerException, "boom"))
	th := thread.NewThread("main")

	_, err := RunFrame(th, f)
	require.Error(t, err)
	assert.True(t, exceptions.Is(err, excNames.NullPointerException))
}
